package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Policy 是部门发布的政策。
type Policy struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`
	Department    string     `gorm:"type:varchar(32);index" json:"department"`
	Category      string     `gorm:"type:varchar(64)" json:"category"`
	Description   string     `gorm:"type:text" json:"description"`
	Content       string     `gorm:"type:text" json:"content"`
	EffectiveFrom *time.Time `json:"effectiveFrom,omitempty"`
	IsActive      bool       `gorm:"not null" json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (Policy) TableName() string { return "policies" }

func (p *Policy) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Tariff 是公共事业的计费标准。
type Tariff struct {
	ID            string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Department    string          `gorm:"type:varchar(32);index;not null" json:"department"`
	Category      string          `gorm:"type:varchar(64);not null" json:"category"`
	Description   string          `gorm:"type:text" json:"description"`
	Rate          decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"rate"`
	Unit          string          `gorm:"type:varchar(32)" json:"unit"`
	EffectiveFrom *time.Time      `json:"effectiveFrom,omitempty"`
	IsActive      bool            `gorm:"not null" json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (Tariff) TableName() string { return "tariffs" }

func (t *Tariff) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
