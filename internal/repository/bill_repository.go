package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"suvidha-go/internal/model"
)

// BillFilter 是账单列表的可选过滤条件。
type BillFilter struct {
	Department string
	IsPaid     *bool
	Limit      int
}

// BillRepository 定义了账单与支付的数据操作接口。
type BillRepository interface {
	ListByCitizen(ctx context.Context, citizenID string, filter BillFilter) ([]model.Bill, error)
	// PayBills 在一个事务中支付全部账单：任一账单不存在、已支付或不属于该公民时
	// 整体回滚并返回 ErrBillsNotPayable。
	PayBills(ctx context.Context, citizenID string, billIDs []string) ([]model.Payment, error)
}

// ErrBillsNotPayable 表示请求中存在不可支付的账单，或账单 ID 重复。
var ErrBillsNotPayable = errors.New("bills are missing, already paid, or not owned by the citizen")

type billRepository struct {
	db *gorm.DB
}

// NewBillRepository 创建一个新的 BillRepository 实例。
func NewBillRepository(db *gorm.DB) BillRepository {
	return &billRepository{db: db}
}

func ownedAccounts(db *gorm.DB, citizenID string) *gorm.DB {
	return db.Model(&model.ServiceAccount{}).Select("id").Where("citizen_id = ?", citizenID)
}

// ListByCitizen 按到期日倒序列出公民的账单。
func (r *billRepository) ListByCitizen(ctx context.Context, citizenID string, filter BillFilter) ([]model.Bill, error) {
	db := r.db.WithContext(ctx)
	q := db.Preload("ServiceAccount").
		Where("service_account_id IN (?)", ownedAccounts(db, citizenID))
	if filter.Department != "" {
		q = q.Where("service_account_id IN (?)",
			db.Model(&model.ServiceAccount{}).Select("id").Where("department = ?", filter.Department))
	}
	if filter.IsPaid != nil {
		q = q.Where("is_paid = ?", *filter.IsPaid)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var bills []model.Bill
	err := q.Order("due_date DESC").Find(&bills).Error
	return bills, err
}

func (r *billRepository) PayBills(ctx context.Context, citizenID string, billIDs []string) ([]model.Payment, error) {
	unique := make(map[string]struct{}, len(billIDs))
	for _, id := range billIDs {
		unique[id] = struct{}{}
	}
	if len(billIDs) == 0 || len(unique) != len(billIDs) {
		return nil, ErrBillsNotPayable
	}

	var payments []model.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bills []model.Bill
		err := tx.Where("id IN ?", billIDs).
			Where("is_paid = ?", false).
			Where("service_account_id IN (?)", ownedAccounts(tx, citizenID)).
			Find(&bills).Error
		if err != nil {
			return err
		}
		if len(bills) != len(billIDs) {
			return ErrBillsNotPayable
		}

		// 条件更新再次校验未支付状态，并发支付时只有一方能成功
		res := tx.Model(&model.Bill{}).
			Where("id IN ?", billIDs).
			Where("is_paid = ?", false).
			Updates(map[string]any{"is_paid": true, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(billIDs)) {
			return ErrBillsNotPayable
		}

		payments = make([]model.Payment, 0, len(bills))
		for _, b := range bills {
			payments = append(payments, model.Payment{
				CitizenID: citizenID,
				BillID:    b.ID,
				Amount:    b.Amount,
				Status:    model.PaymentStatusSuccess,
				ReceiptNo: newReceiptNo(),
			})
		}
		return tx.Create(&payments).Error
	})
	if errors.Is(err, ErrBillsNotPayable) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("pay bills: %w", err)
	}
	return payments, nil
}

func newReceiptNo() string {
	return fmt.Sprintf("REC-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
