package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"suvidha-go/internal/eligibility"
)

// Scheme 是一项公共福利计划。
type Scheme struct {
	ID                  string                 `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title               string                 `gorm:"type:varchar(255);not null;index" json:"title"`
	Department          string                 `gorm:"type:varchar(32);index" json:"department"`
	Description         string                 `gorm:"type:text" json:"description"`
	Eligibility         string                 `gorm:"type:text" json:"eligibility"`
	Benefits            string                 `gorm:"type:text" json:"benefits"`
	ApplicationProcess  string                 `gorm:"type:text" json:"applicationProcess"`
	IsActive            bool                   `gorm:"not null" json:"isActive"`
	EligibilityCriteria []EligibilityCriterion `gorm:"foreignKey:SchemeID" json:"eligibilityCriteria,omitempty"`
	RequiredDocuments   []RequiredDocument     `gorm:"foreignKey:SchemeID" json:"requiredDocuments,omitempty"`
	CreatedAt           time.Time              `json:"createdAt"`
	UpdatedAt           time.Time              `json:"updatedAt"`
}

func (Scheme) TableName() string { return "public_schemes" }

func (s *Scheme) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// EligibilityCriterion 是计划的一条带权重的资格问题。
type EligibilityCriterion struct {
	ID              string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	SchemeID        string         `gorm:"type:varchar(36);index;not null" json:"schemeId"`
	QuestionText    string         `gorm:"type:text;not null" json:"questionText"`
	QuestionType    string         `gorm:"type:varchar(32);not null" json:"questionType"`
	Options         datatypes.JSON `json:"options,omitempty"`
	ValidationRules datatypes.JSON `json:"validationRules,omitempty"`
	Weightage       int            `gorm:"not null" json:"weightage"`
	Order           int            `gorm:"column:sort_order;not null" json:"order"`
	IsRequired      bool           `gorm:"not null" json:"isRequired"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (EligibilityCriterion) TableName() string { return "eligibility_criteria" }

func (c *EligibilityCriterion) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Criterion 将数据库记录转换为评估器使用的结构。
func (c EligibilityCriterion) Criterion() (eligibility.Criterion, error) {
	out := eligibility.Criterion{
		ID:           c.ID,
		QuestionText: c.QuestionText,
		QuestionType: eligibility.QuestionType(c.QuestionType),
		Weightage:    c.Weightage,
		Order:        c.Order,
		IsRequired:   c.IsRequired,
	}
	if len(c.Options) > 0 && string(c.Options) != "null" {
		if err := json.Unmarshal(c.Options, &out.Options); err != nil {
			return out, fmt.Errorf("criterion %s options: %w", c.ID, err)
		}
	}
	if len(c.ValidationRules) > 0 && string(c.ValidationRules) != "null" {
		if err := json.Unmarshal(c.ValidationRules, &out.Rules); err != nil {
			return out, fmt.Errorf("criterion %s validation rules: %w", c.ID, err)
		}
	}
	return out, nil
}

// RequiredDocument 是申请计划需要提交的材料。
type RequiredDocument struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SchemeID     string    `gorm:"type:varchar(36);index;not null" json:"schemeId"`
	DocumentName string    `gorm:"type:varchar(255);not null" json:"documentName"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	IsMandatory  bool      `gorm:"not null" json:"isMandatory"`
	Order        int       `gorm:"column:sort_order;not null" json:"order"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (RequiredDocument) TableName() string { return "required_documents" }

func (d *RequiredDocument) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
