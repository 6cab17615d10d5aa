package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simsfs/inventory_backend/config"
	"github.com/simsfs/inventory_backend/utils"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Payment settles part of a purchase order.
type Payment struct {
	TransactionId string          `gorm:"primaryKey;size:20" json:"transaction_id"`
	PaymentDate   time.Time       `gorm:"not null;index" json:"payment_date"`
	PoId          string          `gorm:"size:20;not null;index" json:"po_id"`
	BillNumber    string          `gorm:"size:20" json:"bill_number"`
	SupplierId    string          `gorm:"size:20;not null;index" json:"supplier_id"`
	SupplierName  string          `gorm:"size:255" json:"supplier_name"`
	County        string          `gorm:"size:100" json:"county"`
	Town          string          `gorm:"size:100" json:"town"`
	PaymentMode   string          `gorm:"size:100;not null" json:"payment_mode"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount_paid"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	TransactionId string          `json:"transaction_id" binding:"omitempty,max=20"`
	PaymentDate   string          `json:"payment_date" binding:"required"`
	PoId          string          `json:"po_id" binding:"required"`
	SupplierId    string          `json:"supplier_id"`
	PaymentMode   string          `json:"payment_mode" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
}

// validate input for both create & update, returns the parsed payment date
func (input *NewPayment) validate(tx *gorm.DB) (time.Time, error) {
	input.TransactionId = strings.TrimSpace(input.TransactionId)
	if err := utils.ValidateStruct(input); err != nil {
		return time.Time{}, err
	}
	paymentDate, err := utils.ParseDate(input.PaymentDate)
	if err != nil {
		return time.Time{}, err
	}
	if !input.Amount.IsPositive() {
		return time.Time{}, utils.ValidationError("payment amount must be greater than zero")
	}
	if err := utils.ValidateScale("payment amount", input.Amount, utils.MoneyPlaces); err != nil {
		return time.Time{}, err
	}
	if err := validateDimension(tx, DimensionPaymentMode, input.PaymentMode, true); err != nil {
		return time.Time{}, err
	}
	return paymentDate, nil
}

// settlePurchaseOrder moves amount onto (positive) or off (negative) the order and its supplier.
func settlePurchaseOrder(ctx context.Context, tx *gorm.DB, order *PurchaseOrder, amount decimal.Decimal) error {
	order.AmountPaid = order.AmountPaid.Add(amount)
	if err := tx.Model(&PurchaseOrder{}).Where("po_id = ?", order.PoId).Update("amount_paid", order.AmountPaid).Error; err != nil {
		return err
	}
	if amount.IsNegative() {
		if err := reverseSupplierSettlement(ctx, tx, order.SupplierId, amount.Neg()); err != nil {
			return err
		}
	} else if err := recordSupplierSettlement(ctx, tx, order.SupplierId, amount); err != nil {
		return err
	}
	return applyPurchaseOrderStatus(tx, order)
}

// lockPaymentTarget locks the order a payment applies to and checks the amount fits its outstanding balance.
func lockPaymentTarget(ctx context.Context, tx *gorm.DB, input *NewPayment) (*PurchaseOrder, error) {
	order, err := utils.FetchModelForUpdate[PurchaseOrder](ctx, tx, "po_id", input.PoId)
	if err != nil {
		if isNotFound(err) {
			return nil, utils.InvalidReferenceError("unknown purchase order %q", input.PoId)
		}
		return nil, err
	}
	if input.SupplierId != "" && input.SupplierId != order.SupplierId {
		return nil, utils.ValidationError("purchase order %s belongs to supplier %s, not %s", order.PoId, order.SupplierId, input.SupplierId)
	}
	if input.Amount.GreaterThan(order.Outstanding()) {
		return nil, utils.OverpaymentError("payment of %s exceeds the %s outstanding on %s",
			input.Amount.StringFixed(2), order.Outstanding().StringFixed(2), order.PoId)
	}
	return order, nil
}

func AddPayment(ctx context.Context, input *NewPayment) (*Payment, error) {
	ctx, span := startSpan(ctx, "AddPayment", attribute.String("po_id", input.PoId))
	generated := strings.TrimSpace(input.TransactionId) == ""

	var payment Payment
	err := withIdentifierRetry(ctx, EntityPayment, generated, func() error {
		return runInTransaction(ctx, func(tx *gorm.DB) error {
			paymentDate, err := input.validate(tx)
			if err != nil {
				return err
			}
			order, err := lockPaymentTarget(ctx, tx, input)
			if err != nil {
				return err
			}

			transactionId := input.TransactionId
			if generated {
				if transactionId, err = nextIdTx(tx, EntityPayment); err != nil {
					return err
				}
			} else if taken, err := identifierTaken(tx, EntityPayment, transactionId); err != nil {
				return err
			} else if taken {
				return utils.DuplicateIdentifierError(transactionId)
			}

			payment = Payment{
				TransactionId: transactionId,
				PaymentDate:   paymentDate,
				PoId:          order.PoId,
				BillNumber:    order.BillNumber,
				SupplierId:    order.SupplierId,
				SupplierName:  order.SupplierName,
				County:        order.County,
				Town:          order.Town,
				PaymentMode:   input.PaymentMode,
				AmountPaid:    input.Amount,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return utils.TranslateWriteError(err, transactionId)
			}
			return settlePurchaseOrder(ctx, tx, order, input.Amount)
		})
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdatePayment reverses the original amount from the original order before
// applying the new amount to the (possibly different) new order.
func UpdatePayment(ctx context.Context, transactionId string, input *NewPayment) (*Payment, error) {
	ctx, span := startSpan(ctx, "UpdatePayment", attribute.String("transaction_id", transactionId))

	var payment *Payment
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		paymentDate, err := input.validate(tx)
		if err != nil {
			return err
		}
		if input.TransactionId != "" && input.TransactionId != transactionId {
			return utils.ValidationError("transaction id cannot be changed")
		}
		if payment, err = utils.FetchModelForUpdate[Payment](ctx, tx, "transaction_id", transactionId); err != nil {
			return err
		}

		oldOrder, err := utils.FetchModelForUpdate[PurchaseOrder](ctx, tx, "po_id", payment.PoId)
		if err != nil {
			return err
		}
		if err := settlePurchaseOrder(ctx, tx, oldOrder, payment.AmountPaid.Neg()); err != nil {
			return err
		}

		newOrder, err := lockPaymentTarget(ctx, tx, input)
		if err != nil {
			return err
		}
		if err := settlePurchaseOrder(ctx, tx, newOrder, input.Amount); err != nil {
			return err
		}

		payment.PaymentDate = paymentDate
		payment.PoId = newOrder.PoId
		payment.BillNumber = newOrder.BillNumber
		payment.SupplierId = newOrder.SupplierId
		payment.SupplierName = newOrder.SupplierName
		payment.County = newOrder.County
		payment.Town = newOrder.Town
		payment.PaymentMode = input.PaymentMode
		payment.AmountPaid = input.Amount
		return tx.Save(payment).Error
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func DeletePayment(ctx context.Context, transactionId string) (*Payment, error) {
	ctx, span := startSpan(ctx, "DeletePayment", attribute.String("transaction_id", transactionId))

	var payment *Payment
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		if payment, err = utils.FetchModelForUpdate[Payment](ctx, tx, "transaction_id", transactionId); err != nil {
			return err
		}
		order, err := utils.FetchModelForUpdate[PurchaseOrder](ctx, tx, "po_id", payment.PoId)
		if err != nil {
			return err
		}
		if err := settlePurchaseOrder(ctx, tx, order, payment.AmountPaid.Neg()); err != nil {
			return err
		}
		return tx.Where("transaction_id = ?", transactionId).Delete(&Payment{}).Error
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func GetPayment(ctx context.Context, transactionId string) (*Payment, error) {
	db := config.GetDB()
	return utils.FetchModel[Payment](ctx, db, "transaction_id", transactionId)
}

func ListPayments(ctx context.Context, poId string) ([]*Payment, error) {
	db := config.GetDB()
	var results []*Payment

	dbCtx := db.WithContext(ctx)
	if poId != "" {
		dbCtx = dbCtx.Where("po_id = ?", poId)
	}
	if err := dbCtx.Order("payment_date DESC, transaction_id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
