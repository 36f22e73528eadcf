package model

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Citizen 是门户的注册用户。认证由外部系统负责，这里只保存资料。
type Citizen struct {
	ID              string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	FullName        string           `gorm:"type:varchar(255);not null" json:"fullName"`
	MobileNumber    string           `gorm:"type:varchar(20);uniqueIndex" json:"mobileNumber"`
	Email           string           `gorm:"type:varchar(255)" json:"email,omitempty"`
	Profile         *CitizenProfile  `gorm:"foreignKey:CitizenID" json:"profile,omitempty"`
	ServiceAccounts []ServiceAccount `gorm:"foreignKey:CitizenID" json:"serviceAccounts,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func (Citizen) TableName() string { return "citizens" }

func (c *Citizen) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CitizenProfile 保存扩展资料和已保存的资格问题答案。
type CitizenProfile struct {
	ID                      string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CitizenID               string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"citizenId"`
	Address                 string         `gorm:"type:text" json:"address,omitempty"`
	Occupation              string         `gorm:"type:varchar(100)" json:"occupation,omitempty"`
	ConsentToSaveAnswers    bool           `gorm:"not null" json:"consentToSaveAnswers"`
	SavedEligibilityAnswers datatypes.JSON `json:"savedEligibilityAnswers,omitempty"`
	CreatedAt               time.Time      `json:"createdAt"`
	UpdatedAt               time.Time      `json:"updatedAt"`
}

func (CitizenProfile) TableName() string { return "citizen_profiles" }

func (p *CitizenProfile) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// SavedAnswer 是档案中保存的一条答案。
type SavedAnswer struct {
	Answer       any       `json:"answer"`
	QuestionType string    `json:"questionType"`
	SavedAt      time.Time `json:"savedAt"`
}

// SavedAnswers 以规范化后的问题文本为键。
type SavedAnswers map[string]SavedAnswer

// SavedAnswers 解析档案中的已保存答案。
func (p *CitizenProfile) SavedAnswers() (SavedAnswers, error) {
	answers := SavedAnswers{}
	if len(p.SavedEligibilityAnswers) == 0 || string(p.SavedEligibilityAnswers) == "null" {
		return answers, nil
	}
	if err := json.Unmarshal(p.SavedEligibilityAnswers, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// SetSavedAnswers 写回已保存答案。
func (p *CitizenProfile) SetSavedAnswers(answers SavedAnswers) error {
	b, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	p.SavedEligibilityAnswers = datatypes.JSON(b)
	return nil
}

// NormalizeQuestion 规范化问题文本：去除首尾空白、合并空白并转为小写。
func NormalizeQuestion(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
