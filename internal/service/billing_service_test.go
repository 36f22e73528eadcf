package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suvidha-go/internal/model"
	"suvidha-go/pkg/apperr"
)

func TestBillingService_PayBill(t *testing.T) {
	ctx := context.Background()
	set := newServiceSet(t)
	owner := seedCitizen(t, set.db, "9200000001")
	stranger := seedCitizen(t, set.db, "9200000002")

	t.Run("pays an unpaid bill and issues a receipt", func(t *testing.T) {
		receipt, err := set.billing.PayBill(ctx, owner.citizen.ID, owner.bills[0].ID)
		require.NoError(t, err)
		assert.Equal(t, owner.bills[0].ID, receipt.BillID)
		assert.True(t, decimal.NewFromInt(450).Equal(receipt.Amount))
		assert.Equal(t, model.PaymentStatusSuccess, receipt.Status)
		assert.True(t, strings.HasPrefix(receipt.ReceiptNo, "REC-"))
	})

	t.Run("a paid bill cannot be paid again", func(t *testing.T) {
		_, err := set.billing.PayBill(ctx, owner.citizen.ID, owner.bills[0].ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.Equal(t, "Bill not found, already paid, or not accessible.", apperr.MessageOf(err))
	})

	t.Run("another citizen's bill is not accessible", func(t *testing.T) {
		_, err := set.billing.PayBill(ctx, owner.citizen.ID, stranger.bills[0].ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestBillingService_BulkPayBills(t *testing.T) {
	ctx := context.Background()

	t.Run("pays every bill and totals the amount", func(t *testing.T) {
		set := newServiceSet(t)
		owner := seedCitizen(t, set.db, "9300000001")

		receipt, err := set.billing.BulkPayBills(ctx, owner.citizen.ID, []string{owner.bills[0].ID, owner.bills[1].ID})
		require.NoError(t, err)
		assert.Equal(t, 2, receipt.Count)
		assert.Equal(t, "570.25", receipt.TotalAmount.StringFixed(2))
	})

	t.Run("one foreign bill fails the whole batch", func(t *testing.T) {
		set := newServiceSet(t)
		owner := seedCitizen(t, set.db, "9300000002")
		stranger := seedCitizen(t, set.db, "9300000003")

		_, err := set.billing.BulkPayBills(ctx, owner.citizen.ID, []string{owner.bills[0].ID, stranger.bills[0].ID})
		assert.ErrorIs(t, err, apperr.ErrPartialBatchInvalid)

		var paid int64
		require.NoError(t, set.db.Model(&model.Bill{}).Where("is_paid = ?", true).Count(&paid).Error)
		assert.Zero(t, paid)
		var payments int64
		require.NoError(t, set.db.Model(&model.Payment{}).Count(&payments).Error)
		assert.Zero(t, payments)
	})

	t.Run("retrying a batch with an already paid bill changes nothing", func(t *testing.T) {
		set := newServiceSet(t)
		owner := seedCitizen(t, set.db, "9300000005")
		third := model.Bill{ServiceAccountID: owner.water.ID, Amount: decimal.NewFromInt(75), DueDate: time.Now().AddDate(0, 0, 30)}
		require.NoError(t, set.db.Create(&third).Error)
		_, err := set.billing.PayBill(ctx, owner.citizen.ID, owner.bills[0].ID)
		require.NoError(t, err)

		batch := []string{owner.bills[0].ID, owner.bills[1].ID, third.ID}
		for attempt := 0; attempt < 2; attempt++ {
			_, err := set.billing.BulkPayBills(ctx, owner.citizen.ID, batch)
			assert.ErrorIs(t, err, apperr.ErrPartialBatchInvalid)

			var paid []string
			require.NoError(t, set.db.Model(&model.Bill{}).Where("is_paid = ?", true).Pluck("id", &paid).Error)
			assert.Equal(t, []string{owner.bills[0].ID}, paid)
			var payments int64
			require.NoError(t, set.db.Model(&model.Payment{}).Count(&payments).Error)
			assert.EqualValues(t, 1, payments)
		}
	})

	t.Run("duplicate ids fail the batch", func(t *testing.T) {
		set := newServiceSet(t)
		owner := seedCitizen(t, set.db, "9300000004")
		_, err := set.billing.BulkPayBills(ctx, owner.citizen.ID, []string{owner.bills[0].ID, owner.bills[0].ID})
		assert.ErrorIs(t, err, apperr.ErrPartialBatchInvalid)
	})
}
