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

// Receipt settles part of a sales order.
type Receipt struct {
	TransactionId  string          `gorm:"primaryKey;size:20" json:"transaction_id"`
	ReceiptDate    time.Time       `gorm:"not null;index" json:"receipt_date"`
	SoId           string          `gorm:"size:20;not null;index" json:"so_id"`
	InvoiceNumber  string          `gorm:"size:20" json:"invoice_number"`
	CustomerId     string          `gorm:"size:20;not null;index" json:"customer_id"`
	CustomerName   string          `gorm:"size:255" json:"customer_name"`
	County         string          `gorm:"size:100" json:"county"`
	Town           string          `gorm:"size:100" json:"town"`
	PaymentMode    string          `gorm:"size:100;not null" json:"payment_mode"`
	AmountReceived decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount_received"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewReceipt struct {
	TransactionId string          `json:"transaction_id" binding:"omitempty,max=20"`
	ReceiptDate   string          `json:"receipt_date" binding:"required"`
	SoId          string          `json:"so_id" binding:"required"`
	CustomerId    string          `json:"customer_id"`
	PaymentMode   string          `json:"payment_mode" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
}

// validate input for both create & update, returns the parsed receipt date
func (input *NewReceipt) validate(tx *gorm.DB) (time.Time, error) {
	input.TransactionId = strings.TrimSpace(input.TransactionId)
	if err := utils.ValidateStruct(input); err != nil {
		return time.Time{}, err
	}
	receiptDate, err := utils.ParseDate(input.ReceiptDate)
	if err != nil {
		return time.Time{}, err
	}
	if !input.Amount.IsPositive() {
		return time.Time{}, utils.ValidationError("receipt amount must be greater than zero")
	}
	if err := utils.ValidateScale("receipt amount", input.Amount, utils.MoneyPlaces); err != nil {
		return time.Time{}, err
	}
	if err := validateDimension(tx, DimensionPaymentMode, input.PaymentMode, true); err != nil {
		return time.Time{}, err
	}
	return receiptDate, nil
}

// settleSalesOrder moves amount onto (positive) or off (negative) the order and its customer.
func settleSalesOrder(ctx context.Context, tx *gorm.DB, order *SalesOrder, amount decimal.Decimal) error {
	order.AmountReceived = order.AmountReceived.Add(amount)
	if err := tx.Model(&SalesOrder{}).Where("so_id = ?", order.SoId).Update("amount_received", order.AmountReceived).Error; err != nil {
		return err
	}
	if amount.IsNegative() {
		if err := reverseCustomerSettlement(ctx, tx, order.CustomerId, amount.Neg()); err != nil {
			return err
		}
	} else if err := recordCustomerSettlement(ctx, tx, order.CustomerId, amount); err != nil {
		return err
	}
	return applySalesOrderStatus(tx, order)
}

// lockReceiptTarget locks the order a receipt applies to and checks the amount fits its outstanding balance.
func lockReceiptTarget(ctx context.Context, tx *gorm.DB, input *NewReceipt) (*SalesOrder, error) {
	order, err := utils.FetchModelForUpdate[SalesOrder](ctx, tx, "so_id", input.SoId)
	if err != nil {
		if isNotFound(err) {
			return nil, utils.InvalidReferenceError("unknown sales order %q", input.SoId)
		}
		return nil, err
	}
	if input.CustomerId != "" && input.CustomerId != order.CustomerId {
		return nil, utils.ValidationError("sales order %s belongs to customer %s, not %s", order.SoId, order.CustomerId, input.CustomerId)
	}
	if input.Amount.GreaterThan(order.Outstanding()) {
		return nil, utils.OverpaymentError("receipt of %s exceeds the %s outstanding on %s",
			input.Amount.StringFixed(2), order.Outstanding().StringFixed(2), order.SoId)
	}
	return order, nil
}

func AddReceipt(ctx context.Context, input *NewReceipt) (*Receipt, error) {
	ctx, span := startSpan(ctx, "AddReceipt", attribute.String("so_id", input.SoId))
	generated := strings.TrimSpace(input.TransactionId) == ""

	var receipt Receipt
	err := withIdentifierRetry(ctx, EntityReceipt, generated, func() error {
		return runInTransaction(ctx, func(tx *gorm.DB) error {
			receiptDate, err := input.validate(tx)
			if err != nil {
				return err
			}
			order, err := lockReceiptTarget(ctx, tx, input)
			if err != nil {
				return err
			}

			transactionId := input.TransactionId
			if generated {
				if transactionId, err = nextIdTx(tx, EntityReceipt); err != nil {
					return err
				}
			} else if taken, err := identifierTaken(tx, EntityReceipt, transactionId); err != nil {
				return err
			} else if taken {
				return utils.DuplicateIdentifierError(transactionId)
			}

			receipt = Receipt{
				TransactionId:  transactionId,
				ReceiptDate:    receiptDate,
				SoId:           order.SoId,
				InvoiceNumber:  order.InvoiceNumber,
				CustomerId:     order.CustomerId,
				CustomerName:   order.CustomerName,
				County:         order.County,
				Town:           order.Town,
				PaymentMode:    input.PaymentMode,
				AmountReceived: input.Amount,
			}
			if err := tx.Create(&receipt).Error; err != nil {
				return utils.TranslateWriteError(err, transactionId)
			}
			return settleSalesOrder(ctx, tx, order, input.Amount)
		})
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// UpdateReceipt reverses the original amount from the original order before
// applying the new amount to the (possibly different) new order.
func UpdateReceipt(ctx context.Context, transactionId string, input *NewReceipt) (*Receipt, error) {
	ctx, span := startSpan(ctx, "UpdateReceipt", attribute.String("transaction_id", transactionId))

	var receipt *Receipt
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		receiptDate, err := input.validate(tx)
		if err != nil {
			return err
		}
		if input.TransactionId != "" && input.TransactionId != transactionId {
			return utils.ValidationError("transaction id cannot be changed")
		}
		if receipt, err = utils.FetchModelForUpdate[Receipt](ctx, tx, "transaction_id", transactionId); err != nil {
			return err
		}

		oldOrder, err := utils.FetchModelForUpdate[SalesOrder](ctx, tx, "so_id", receipt.SoId)
		if err != nil {
			return err
		}
		if err := settleSalesOrder(ctx, tx, oldOrder, receipt.AmountReceived.Neg()); err != nil {
			return err
		}

		newOrder, err := lockReceiptTarget(ctx, tx, input)
		if err != nil {
			return err
		}
		if err := settleSalesOrder(ctx, tx, newOrder, input.Amount); err != nil {
			return err
		}

		receipt.ReceiptDate = receiptDate
		receipt.SoId = newOrder.SoId
		receipt.InvoiceNumber = newOrder.InvoiceNumber
		receipt.CustomerId = newOrder.CustomerId
		receipt.CustomerName = newOrder.CustomerName
		receipt.County = newOrder.County
		receipt.Town = newOrder.Town
		receipt.PaymentMode = input.PaymentMode
		receipt.AmountReceived = input.Amount
		return tx.Save(receipt).Error
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func DeleteReceipt(ctx context.Context, transactionId string) (*Receipt, error) {
	ctx, span := startSpan(ctx, "DeleteReceipt", attribute.String("transaction_id", transactionId))

	var receipt *Receipt
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		if receipt, err = utils.FetchModelForUpdate[Receipt](ctx, tx, "transaction_id", transactionId); err != nil {
			return err
		}
		order, err := utils.FetchModelForUpdate[SalesOrder](ctx, tx, "so_id", receipt.SoId)
		if err != nil {
			return err
		}
		if err := settleSalesOrder(ctx, tx, order, receipt.AmountReceived.Neg()); err != nil {
			return err
		}
		return tx.Where("transaction_id = ?", transactionId).Delete(&Receipt{}).Error
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func GetReceipt(ctx context.Context, transactionId string) (*Receipt, error) {
	db := config.GetDB()
	return utils.FetchModel[Receipt](ctx, db, "transaction_id", transactionId)
}

func ListReceipts(ctx context.Context, soId string) ([]*Receipt, error) {
	db := config.GetDB()
	var results []*Receipt

	dbCtx := db.WithContext(ctx)
	if soId != "" {
		dbCtx = dbCtx.Where("so_id = ?", soId)
	}
	if err := dbCtx.Order("receipt_date DESC, transaction_id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
