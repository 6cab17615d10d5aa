package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/simsfs/inventory_backend/config"
	"github.com/simsfs/inventory_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DimensionValue is a unique-name lookup row. Every dimension kind has its own table.
type DimensionValue struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type ItemType struct{ DimensionValue }
type ItemCategory struct{ DimensionValue }
type ItemSubcategory struct{ DimensionValue }
type County struct{ DimensionValue }
type Town struct{ DimensionValue }
type PaymentMode struct{ DimensionValue }
type PaymentStatus struct{ DimensionValue }
type ReceiptStatus struct{ DimensionValue }
type ShippingStatusValue struct{ DimensionValue }

func (ItemType) TableName() string            { return "item_types" }
func (ItemCategory) TableName() string        { return "item_categories" }
func (ItemSubcategory) TableName() string     { return "item_subcategories" }
func (County) TableName() string              { return "counties" }
func (Town) TableName() string                { return "towns" }
func (PaymentMode) TableName() string         { return "payment_modes" }
func (PaymentStatus) TableName() string       { return "payment_statuses" }
func (ReceiptStatus) TableName() string       { return "receipt_statuses" }
func (ShippingStatusValue) TableName() string { return "shipping_statuses" }

type DimensionKind string

const (
	DimensionItemType        DimensionKind = "item_type"
	DimensionItemCategory    DimensionKind = "item_category"
	DimensionItemSubcategory DimensionKind = "item_subcategory"
	DimensionCounty          DimensionKind = "county"
	DimensionTown            DimensionKind = "town"
	DimensionPaymentMode     DimensionKind = "payment_mode"
	DimensionPaymentStatus   DimensionKind = "payment_status"
	DimensionReceiptStatus   DimensionKind = "receipt_status"
	DimensionShippingStatus  DimensionKind = "shipping_status"
)

var dimensionTables = map[DimensionKind]string{
	DimensionItemType:        "item_types",
	DimensionItemCategory:    "item_categories",
	DimensionItemSubcategory: "item_subcategories",
	DimensionCounty:          "counties",
	DimensionTown:            "towns",
	DimensionPaymentMode:     "payment_modes",
	DimensionPaymentStatus:   "payment_statuses",
	DimensionReceiptStatus:   "receipt_statuses",
	DimensionShippingStatus:  "shipping_statuses",
}

func (k DimensionKind) table() (string, error) {
	table, ok := dimensionTables[k]
	if !ok {
		return "", utils.ValidationError("unknown reference data kind %q", string(k))
	}
	return table, nil
}

func (k DimensionKind) label() string {
	return strings.ReplaceAll(string(k), "_", " ")
}

func dimensionModels() []interface{} {
	return []interface{}{
		&ItemType{}, &ItemCategory{}, &ItemSubcategory{}, &County{}, &Town{},
		&PaymentMode{}, &PaymentStatus{}, &ReceiptStatus{}, &ShippingStatusValue{},
	}
}

// getOrCreateDimension upserts by name and never fails for a non-empty name.
func getOrCreateDimension(tx *gorm.DB, kind DimensionKind, name string) error {
	table, err := kind.table()
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return utils.ValidationError("%s name is required", kind.label())
	}
	return tx.Table(table).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&DimensionValue{Name: name}).Error
}

// validateDimension fails with ErrInvalidReference when name is not a known value.
// Empty names are accepted for optional references.
func validateDimension(tx *gorm.DB, kind DimensionKind, name string, required bool) error {
	table, err := kind.table()
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		if required {
			return utils.ValidationError("%s is required", kind.label())
		}
		return nil
	}
	err = utils.ValidateResourceId[DimensionValue](tx.Statement.Context, tx.Table(table), "name", name)
	if isNotFound(err) {
		return utils.InvalidReferenceError("unknown %s %q", kind.label(), name)
	}
	return err
}

func CreateDimension(ctx context.Context, kind DimensionKind, name string) (*DimensionValue, error) {
	table, err := kind.table()
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.ValidationError("%s name is required", kind.label())
	}

	db := config.GetDB().WithContext(ctx)
	if err := utils.ValidateUnique[DimensionValue](ctx, db.Table(table), "name", name); err != nil {
		return nil, err
	}

	value := DimensionValue{Name: name}
	if err := db.Table(table).Create(&value).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.ValidationError("%s %q already exists", kind.label(), name)
		}
		return nil, err
	}
	return &value, nil
}

func ListDimension(ctx context.Context, kind DimensionKind) ([]*DimensionValue, error) {
	table, err := kind.table()
	if err != nil {
		return nil, err
	}
	var results []*DimensionValue
	if err := config.GetDB().WithContext(ctx).Table(table).Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// SeedReferenceData creates every status value and any extra dimension values given.
func SeedReferenceData(ctx context.Context, extra map[DimensionKind][]string) error {
	return runInTransaction(ctx, func(tx *gorm.DB) error {
		for _, s := range AllSettlementStatuses {
			if err := getOrCreateDimension(tx, DimensionPaymentStatus, s.String()); err != nil {
				return err
			}
			if err := getOrCreateDimension(tx, DimensionReceiptStatus, s.String()); err != nil {
				return err
			}
		}
		for _, s := range AllShippingStatuses {
			if err := getOrCreateDimension(tx, DimensionShippingStatus, s.String()); err != nil {
				return err
			}
		}
		for kind, names := range extra {
			for _, name := range utils.UniqueSlice(names) {
				if err := getOrCreateDimension(tx, kind, name); err != nil {
					return fmt.Errorf("seed %s: %w", kind.label(), err)
				}
			}
		}
		return nil
	})
}
