package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 服务申请状态
var ApplicationStatuses = []string{"SUBMITTED", "UNDER_PROCESS", "APPROVED", "REJECTED", "COMPLETED"}

// 计划申请状态
var SchemeApplicationStatuses = []string{"DRAFT", "SUBMITTED", "UNDER_REVIEW", "DOCUMENTS_REQUIRED", "APPROVED", "REJECTED"}

// 投诉状态
const GrievanceStatusPending = "PENDING"

var GrievanceStatuses = []string{GrievanceStatusPending, "IN_PROGRESS", "RESOLVED", "CLOSED"}

// Application 是公民提交的服务申请（新装、迁移等）。
type Application struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CitizenID   string    `gorm:"type:varchar(36);index;not null" json:"citizenId"`
	Department  string    `gorm:"type:varchar(32);index;not null" json:"department"`
	ServiceType string    `gorm:"type:varchar(64);not null" json:"serviceType"`
	Status      string    `gorm:"type:varchar(32);index;not null" json:"status"`
	SubmittedAt time.Time `gorm:"not null" json:"submittedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Application) TableName() string { return "applications" }

func (a *Application) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// SchemeApplication 是公民对福利计划的申请。
type SchemeApplication struct {
	ID                 string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CitizenID          string         `gorm:"type:varchar(36);index;not null" json:"citizenId"`
	SchemeID           string         `gorm:"type:varchar(36);index;not null" json:"schemeId"`
	Scheme             *Scheme        `json:"scheme,omitempty"`
	Status             string         `gorm:"type:varchar(32);index;not null" json:"status"`
	EligibilityStatus  string         `gorm:"type:varchar(32)" json:"eligibilityStatus,omitempty"`
	EligibilityScore   float64        `json:"eligibilityScore"`
	EligibilityAnswers datatypes.JSON `json:"eligibilityAnswers,omitempty"`
	SubmittedAt        *time.Time     `json:"submittedAt,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

func (SchemeApplication) TableName() string { return "scheme_applications" }

func (a *SchemeApplication) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// Grievance 是公民提交的投诉。
type Grievance struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CitizenID   string    `gorm:"type:varchar(36);index;not null" json:"citizenId"`
	Department  string    `gorm:"type:varchar(32);index;not null" json:"department"`
	Category    string    `gorm:"type:varchar(64)" json:"category,omitempty"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Status      string    `gorm:"type:varchar(32);index;not null" json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Grievance) TableName() string { return "grievances" }

func (g *Grievance) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
