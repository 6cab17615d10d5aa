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

type Supplier struct {
	SupplierId     string          `gorm:"primaryKey;size:20" json:"supplier_id"`
	SupplierName   string          `gorm:"size:255;not null" json:"supplier_name"`
	Phone          string          `gorm:"size:20" json:"phone"`
	Email          string          `gorm:"size:100" json:"email"`
	County         string          `gorm:"size:100" json:"county"`
	Town           string          `gorm:"size:100" json:"town"`
	TotalPurchases decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_purchases"`
	TotalPayments  decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_payments"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewParty is the create/update input for suppliers and customers.
type NewParty struct {
	Id     string `json:"id" binding:"omitempty,max=20"`
	Name   string `json:"name" binding:"required,max=255"`
	Phone  string `json:"phone"`
	Email  string `json:"email" binding:"omitempty,email"`
	County string `json:"county"`
	Town   string `json:"town"`
}

// Balance is what we still owe the supplier.
func (s Supplier) Balance() decimal.Decimal {
	return s.TotalPurchases.Sub(s.TotalPayments)
}

// validate input for both create & update; returns the normalized phone number
func (input *NewParty) validate(tx *gorm.DB) (string, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return "", err
	}
	phone := strings.TrimSpace(input.Phone)
	if phone != "" {
		var err error
		if phone, err = utils.NormalizePhoneNumber(phone, config.DefaultPhoneRegion()); err != nil {
			return "", err
		}
	}
	if err := validateDimension(tx, DimensionCounty, input.County, false); err != nil {
		return "", err
	}
	if err := validateDimension(tx, DimensionTown, input.Town, false); err != nil {
		return "", err
	}
	return phone, nil
}

/* balance operations; run inside the caller's transaction under the supplier row lock */

func lockSupplier(ctx context.Context, tx *gorm.DB, supplierId string) (*Supplier, error) {
	supplier, err := utils.FetchModelForUpdate[Supplier](ctx, tx, "supplier_id", supplierId)
	if err != nil {
		if isNotFound(err) {
			return nil, utils.InvalidReferenceError("unknown supplier %q", supplierId)
		}
		return nil, err
	}
	return supplier, nil
}

func adjustSupplierTotals(ctx context.Context, tx *gorm.DB, supplierId string, owedDelta decimal.Decimal, paidDelta decimal.Decimal) error {
	supplier, err := lockSupplier(ctx, tx, supplierId)
	if err != nil {
		return err
	}
	supplier.TotalPurchases = supplier.TotalPurchases.Add(owedDelta)
	supplier.TotalPayments = supplier.TotalPayments.Add(paidDelta)
	if supplier.Balance().IsNegative() {
		config.LogWarning(config.GetLogger(), "models", "adjustSupplierTotals",
			"supplier balance is negative", map[string]interface{}{"supplier_id": supplierId, "balance": supplier.Balance()})
	}
	return tx.Model(&Supplier{}).Where("supplier_id = ?", supplierId).Updates(map[string]interface{}{
		"total_purchases": supplier.TotalPurchases,
		"total_payments":  supplier.TotalPayments,
	}).Error
}

func recordSupplierObligation(ctx context.Context, tx *gorm.DB, supplierId string, delta decimal.Decimal) error {
	return adjustSupplierTotals(ctx, tx, supplierId, delta, decimal.Zero)
}

func recordSupplierSettlement(ctx context.Context, tx *gorm.DB, supplierId string, amount decimal.Decimal) error {
	return adjustSupplierTotals(ctx, tx, supplierId, decimal.Zero, amount)
}

func reverseSupplierSettlement(ctx context.Context, tx *gorm.DB, supplierId string, amount decimal.Decimal) error {
	return adjustSupplierTotals(ctx, tx, supplierId, decimal.Zero, amount.Neg())
}

/* CRUD */

func CreateSupplier(ctx context.Context, input *NewParty) (*Supplier, error) {
	ctx, span := startSpan(ctx, "CreateSupplier")
	input.Id = strings.TrimSpace(input.Id)
	generated := input.Id == ""

	var supplier Supplier
	err := withIdentifierRetry(ctx, EntitySupplier, generated, func() error {
		return runInTransaction(ctx, func(tx *gorm.DB) error {
			phone, err := input.validate(tx)
			if err != nil {
				return err
			}
			supplierId := input.Id
			if generated {
				if supplierId, err = nextIdTx(tx, EntitySupplier); err != nil {
					return err
				}
			} else if taken, err := identifierTaken(tx, EntitySupplier, supplierId); err != nil {
				return err
			} else if taken {
				return utils.DuplicateIdentifierError(supplierId)
			}

			supplier = Supplier{
				SupplierId:   supplierId,
				SupplierName: strings.TrimSpace(input.Name),
				Phone:        phone,
				Email:        input.Email,
				County:       input.County,
				Town:         input.Town,
			}
			if err := tx.Create(&supplier).Error; err != nil {
				return utils.TranslateWriteError(err, supplierId)
			}
			return nil
		})
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// UpdateSupplier changes contact details. Snapshots on existing orders are left as they were.
func UpdateSupplier(ctx context.Context, supplierId string, input *NewParty) (*Supplier, error) {
	ctx, span := startSpan(ctx, "UpdateSupplier", attribute.String("supplier_id", supplierId))
	var supplier *Supplier
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		phone, err := input.validate(tx)
		if err != nil {
			return err
		}
		if input.Id != "" && input.Id != supplierId {
			return utils.ValidationError("supplier id cannot be changed")
		}
		if supplier, err = utils.FetchModelForUpdate[Supplier](ctx, tx, "supplier_id", supplierId); err != nil {
			return err
		}
		supplier.SupplierName = strings.TrimSpace(input.Name)
		supplier.Phone = phone
		supplier.Email = input.Email
		supplier.County = input.County
		supplier.Town = input.Town
		return tx.Model(&Supplier{}).Where("supplier_id = ?", supplierId).Updates(map[string]interface{}{
			"supplier_name": supplier.SupplierName,
			"phone":         supplier.Phone,
			"email":         supplier.Email,
			"county":        supplier.County,
			"town":          supplier.Town,
		}).Error
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func DeleteSupplier(ctx context.Context, supplierId string) (*Supplier, error) {
	ctx, span := startSpan(ctx, "DeleteSupplier", attribute.String("supplier_id", supplierId))
	var supplier *Supplier
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		if supplier, err = utils.FetchModelForUpdate[Supplier](ctx, tx, "supplier_id", supplierId); err != nil {
			return err
		}
		if supplier.Balance().IsPositive() {
			return utils.OutstandingBalanceError("supplier %s is still owed %s", supplierId, supplier.Balance().StringFixed(2))
		}

		count, err := utils.ResourceCountWhere[PurchaseOrder](ctx, tx, "supplier_id = ?", supplierId)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.HasStockOrHistoryError("purchase order associated with supplier %s exists", supplierId)
		}

		count, err = utils.ResourceCountWhere[Payment](ctx, tx, "supplier_id = ?", supplierId)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.HasStockOrHistoryError("payment associated with supplier %s exists", supplierId)
		}

		return tx.Where("supplier_id = ?", supplierId).Delete(&Supplier{}).Error
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func GetSupplier(ctx context.Context, supplierId string) (*Supplier, error) {
	db := config.GetDB()
	return utils.FetchModel[Supplier](ctx, db, "supplier_id", supplierId)
}

func ListSuppliers(ctx context.Context, search string) ([]*Supplier, error) {
	db := config.GetDB()
	var results []*Supplier

	dbCtx := db.WithContext(ctx)
	if search = strings.TrimSpace(search); search != "" {
		dbCtx = dbCtx.Where("supplier_name LIKE ? OR supplier_id LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := dbCtx.Order("supplier_id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
