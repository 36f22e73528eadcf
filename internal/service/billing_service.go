package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"suvidha-go/internal/model"
	"suvidha-go/internal/repository"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/log"
)

// 面向公民的支付失败消息
const (
	msgBillNotPayable  = "Bill not found, already paid, or not accessible."
	msgBatchNotPayable = "Some bills are invalid, already paid, or do not belong to you."
)

// PaymentReceipt 是单张账单的支付回执。
type PaymentReceipt struct {
	PaymentID string          `json:"paymentId"`
	BillID    string          `json:"billId"`
	Amount    decimal.Decimal `json:"amount"`
	ReceiptNo string          `json:"receiptNo"`
	Status    string          `json:"status"`
}

// BulkPaymentReceipt 是批量支付的回执。
type BulkPaymentReceipt struct {
	Payments    []PaymentReceipt `json:"payments"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	Count       int              `json:"count"`
}

// BillingService 定义了账单查询与支付的业务接口。
type BillingService interface {
	ListBills(ctx context.Context, citizenID string, filter repository.BillFilter) ([]model.Bill, error)
	PayBill(ctx context.Context, citizenID, billID string) (*PaymentReceipt, error)
	BulkPayBills(ctx context.Context, citizenID string, billIDs []string) (*BulkPaymentReceipt, error)
}

type billingService struct {
	billRepo repository.BillRepository
}

// NewBillingService 创建一个新的 BillingService 实例。
func NewBillingService(billRepo repository.BillRepository) BillingService {
	return &billingService{billRepo: billRepo}
}

func (s *billingService) ListBills(ctx context.Context, citizenID string, filter repository.BillFilter) ([]model.Bill, error) {
	return s.billRepo.ListByCitizen(ctx, citizenID, filter)
}

func (s *billingService) PayBill(ctx context.Context, citizenID, billID string) (*PaymentReceipt, error) {
	payments, err := s.billRepo.PayBills(ctx, citizenID, []string{billID})
	if errors.Is(err, repository.ErrBillsNotPayable) {
		return nil, apperr.New(apperr.CodeNotFound, msgBillNotPayable)
	}
	if err != nil {
		return nil, err
	}
	receipt := toReceipt(payments[0])
	log.Infof("[BillingService] 账单支付成功: citizen=%s, bill=%s, receipt=%s", citizenID, billID, receipt.ReceiptNo)
	return &receipt, nil
}

// BulkPayBills 全部成功或全部失败。
func (s *billingService) BulkPayBills(ctx context.Context, citizenID string, billIDs []string) (*BulkPaymentReceipt, error) {
	payments, err := s.billRepo.PayBills(ctx, citizenID, billIDs)
	if errors.Is(err, repository.ErrBillsNotPayable) {
		return nil, apperr.New(apperr.CodePartialBatchInvalid, msgBatchNotPayable)
	}
	if err != nil {
		return nil, err
	}

	out := &BulkPaymentReceipt{Payments: make([]PaymentReceipt, 0, len(payments)), TotalAmount: decimal.Zero}
	for _, p := range payments {
		out.Payments = append(out.Payments, toReceipt(p))
		out.TotalAmount = out.TotalAmount.Add(p.Amount)
	}
	out.Count = len(out.Payments)
	log.Infof("[BillingService] 批量支付成功: citizen=%s, count=%d, total=%s", citizenID, out.Count, out.TotalAmount.StringFixed(2))
	return out, nil
}

func toReceipt(p model.Payment) PaymentReceipt {
	return PaymentReceipt{
		PaymentID: p.ID,
		BillID:    p.BillID,
		Amount:    p.Amount,
		ReceiptNo: p.ReceiptNo,
		Status:    p.Status,
	}
}
