package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 部门枚举
const (
	DepartmentElectricity = "ELECTRICITY"
	DepartmentWater       = "WATER"
	DepartmentGas         = "GAS"
	DepartmentSanitation  = "SANITATION"
	DepartmentMunicipal   = "MUNICIPAL"
)

// Departments 列出全部部门。
var Departments = []string{DepartmentElectricity, DepartmentWater, DepartmentGas, DepartmentSanitation, DepartmentMunicipal}

// ServiceAccount 是公民在某个部门的服务账户。
type ServiceAccount struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CitizenID  string    `gorm:"type:varchar(36);index;not null" json:"citizenId"`
	Department string    `gorm:"type:varchar(32);not null" json:"department"`
	ConsumerID string    `gorm:"type:varchar(64);not null" json:"consumerId"`
	Address    string    `gorm:"type:text" json:"address,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (ServiceAccount) TableName() string { return "service_accounts" }

func (a *ServiceAccount) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// Bill 是服务账户下的一张账单。
type Bill struct {
	ID               string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	ServiceAccountID string          `gorm:"type:varchar(36);index;not null" json:"serviceAccountId"`
	ServiceAccount   *ServiceAccount `json:"serviceAccount,omitempty"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	DueDate          time.Time       `gorm:"not null" json:"dueDate"`
	IsPaid           bool            `gorm:"index;not null" json:"isPaid"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (Bill) TableName() string { return "bills" }

func (b *Bill) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// PaymentStatusSuccess 是支付成功的状态值。
const PaymentStatusSuccess = "SUCCESS"

// Payment 是一次支付记录。
type Payment struct {
	ID        string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	CitizenID string          `gorm:"type:varchar(36);index;not null" json:"citizenId"`
	BillID    string          `gorm:"type:varchar(36);index;not null" json:"billId"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status    string          `gorm:"type:varchar(16);not null" json:"status"`
	ReceiptNo string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"receiptNo"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
