package model

import (
	"time"

	"gorm.io/gorm"
)

// APIKey 是部门系统访问集成接口的凭据，只保存密钥的 bcrypt 哈希。
type APIKey struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string     `gorm:"type:varchar(100);not null" json:"name"`
	Department string     `gorm:"type:varchar(32);index;not null" json:"department"`
	SecretHash string     `gorm:"type:varchar(100);not null" json:"-"`
	IsActive   bool       `gorm:"not null" json:"isActive"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (APIKey) TableName() string { return "api_keys" }

func (k *APIKey) BeforeCreate(*gorm.DB) error {
	ensureID(&k.ID)
	return nil
}
