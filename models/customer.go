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

type Customer struct {
	CustomerId    string          `gorm:"primaryKey;size:20" json:"customer_id"`
	CustomerName  string          `gorm:"size:255;not null" json:"customer_name"`
	Phone         string          `gorm:"size:20" json:"phone"`
	Email         string          `gorm:"size:100" json:"email"`
	County        string          `gorm:"size:100" json:"county"`
	Town          string          `gorm:"size:100" json:"town"`
	TotalSales    decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_sales"`
	TotalPayments decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_payments"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Balance is what the customer still owes us.
func (c Customer) Balance() decimal.Decimal {
	return c.TotalSales.Sub(c.TotalPayments)
}

/* balance operations; run inside the caller's transaction under the customer row lock */

func lockCustomer(ctx context.Context, tx *gorm.DB, customerId string) (*Customer, error) {
	customer, err := utils.FetchModelForUpdate[Customer](ctx, tx, "customer_id", customerId)
	if err != nil {
		if isNotFound(err) {
			return nil, utils.InvalidReferenceError("unknown customer %q", customerId)
		}
		return nil, err
	}
	return customer, nil
}

func adjustCustomerTotals(ctx context.Context, tx *gorm.DB, customerId string, owedDelta decimal.Decimal, paidDelta decimal.Decimal) error {
	customer, err := lockCustomer(ctx, tx, customerId)
	if err != nil {
		return err
	}
	customer.TotalSales = customer.TotalSales.Add(owedDelta)
	customer.TotalPayments = customer.TotalPayments.Add(paidDelta)
	if customer.Balance().IsNegative() {
		config.LogWarning(config.GetLogger(), "models", "adjustCustomerTotals",
			"customer balance is negative", map[string]interface{}{"customer_id": customerId, "balance": customer.Balance()})
	}
	return tx.Model(&Customer{}).Where("customer_id = ?", customerId).Updates(map[string]interface{}{
		"total_sales":    customer.TotalSales,
		"total_payments": customer.TotalPayments,
	}).Error
}

func recordCustomerObligation(ctx context.Context, tx *gorm.DB, customerId string, delta decimal.Decimal) error {
	return adjustCustomerTotals(ctx, tx, customerId, delta, decimal.Zero)
}

func recordCustomerSettlement(ctx context.Context, tx *gorm.DB, customerId string, amount decimal.Decimal) error {
	return adjustCustomerTotals(ctx, tx, customerId, decimal.Zero, amount)
}

func reverseCustomerSettlement(ctx context.Context, tx *gorm.DB, customerId string, amount decimal.Decimal) error {
	return adjustCustomerTotals(ctx, tx, customerId, decimal.Zero, amount.Neg())
}

/* CRUD */

func CreateCustomer(ctx context.Context, input *NewParty) (*Customer, error) {
	ctx, span := startSpan(ctx, "CreateCustomer")
	input.Id = strings.TrimSpace(input.Id)
	generated := input.Id == ""

	var customer Customer
	err := withIdentifierRetry(ctx, EntityCustomer, generated, func() error {
		return runInTransaction(ctx, func(tx *gorm.DB) error {
			phone, err := input.validate(tx)
			if err != nil {
				return err
			}
			customerId := input.Id
			if generated {
				if customerId, err = nextIdTx(tx, EntityCustomer); err != nil {
					return err
				}
			} else if taken, err := identifierTaken(tx, EntityCustomer, customerId); err != nil {
				return err
			} else if taken {
				return utils.DuplicateIdentifierError(customerId)
			}

			customer = Customer{
				CustomerId:   customerId,
				CustomerName: strings.TrimSpace(input.Name),
				Phone:        phone,
				Email:        input.Email,
				County:       input.County,
				Town:         input.Town,
			}
			if err := tx.Create(&customer).Error; err != nil {
				return utils.TranslateWriteError(err, customerId)
			}
			return nil
		})
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// UpdateCustomer changes contact details. Snapshots on existing orders are left as they were.
func UpdateCustomer(ctx context.Context, customerId string, input *NewParty) (*Customer, error) {
	ctx, span := startSpan(ctx, "UpdateCustomer", attribute.String("customer_id", customerId))
	var customer *Customer
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		phone, err := input.validate(tx)
		if err != nil {
			return err
		}
		if input.Id != "" && input.Id != customerId {
			return utils.ValidationError("customer id cannot be changed")
		}
		if customer, err = utils.FetchModelForUpdate[Customer](ctx, tx, "customer_id", customerId); err != nil {
			return err
		}
		customer.CustomerName = strings.TrimSpace(input.Name)
		customer.Phone = phone
		customer.Email = input.Email
		customer.County = input.County
		customer.Town = input.Town
		return tx.Model(&Customer{}).Where("customer_id = ?", customerId).Updates(map[string]interface{}{
			"customer_name": customer.CustomerName,
			"phone":         customer.Phone,
			"email":         customer.Email,
			"county":        customer.County,
			"town":          customer.Town,
		}).Error
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func DeleteCustomer(ctx context.Context, customerId string) (*Customer, error) {
	ctx, span := startSpan(ctx, "DeleteCustomer", attribute.String("customer_id", customerId))
	var customer *Customer
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		if customer, err = utils.FetchModelForUpdate[Customer](ctx, tx, "customer_id", customerId); err != nil {
			return err
		}
		if customer.Balance().IsPositive() {
			return utils.OutstandingBalanceError("customer %s still owes %s", customerId, customer.Balance().StringFixed(2))
		}

		count, err := utils.ResourceCountWhere[SalesOrder](ctx, tx, "customer_id = ?", customerId)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.HasStockOrHistoryError("sales order associated with customer %s exists", customerId)
		}

		count, err = utils.ResourceCountWhere[Receipt](ctx, tx, "customer_id = ?", customerId)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.HasStockOrHistoryError("receipt associated with customer %s exists", customerId)
		}

		return tx.Where("customer_id = ?", customerId).Delete(&Customer{}).Error
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func GetCustomer(ctx context.Context, customerId string) (*Customer, error) {
	db := config.GetDB()
	return utils.FetchModel[Customer](ctx, db, "customer_id", customerId)
}

func ListCustomers(ctx context.Context, search string) ([]*Customer, error) {
	db := config.GetDB()
	var results []*Customer

	dbCtx := db.WithContext(ctx)
	if search = strings.TrimSpace(search); search != "" {
		dbCtx = dbCtx.Where("customer_name LIKE ? OR customer_id LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := dbCtx.Order("customer_id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
