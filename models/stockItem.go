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

type StockItem struct {
	ItemId            string          `gorm:"primaryKey;size:20" json:"item_id"`
	ItemType          string          `gorm:"size:100;not null;index" json:"item_type"`
	ItemCategory      string          `gorm:"size:100;not null;index" json:"item_category"`
	ItemSubcategory   string          `gorm:"size:100;not null" json:"item_subcategory"`
	ItemName          string          `gorm:"size:255;not null" json:"item_name"`
	PurchasePrice     decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"purchase_price"`
	SalePrice         decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"sale_price"`
	QuantityPurchased int             `gorm:"not null;default:0" json:"quantity_purchased"`
	QuantitySold      int             `gorm:"not null;default:0" json:"quantity_sold"`
	ReorderLevel      int             `gorm:"not null;default:0" json:"reorder_level"`
	ReorderRequired   ReorderFlag     `gorm:"size:3;not null;default:NO" json:"reorder_required"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStockItem struct {
	ItemId          string          `json:"item_id" binding:"omitempty,max=20"`
	ItemType        string          `json:"item_type" binding:"required"`
	ItemCategory    string          `json:"item_category" binding:"required"`
	ItemSubcategory string          `json:"item_subcategory" binding:"required"`
	ItemName        string          `json:"item_name" binding:"required,max=255"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	SalePrice       decimal.Decimal `json:"sale_price"`
	ReorderLevel    int             `json:"reorder_level" binding:"gte=0"`
}

type StockItemFilter struct {
	Search       string `form:"search" json:"search"`
	ItemType     string `form:"item_type" json:"item_type"`
	ItemCategory string `form:"item_category" json:"item_category"`
	ReorderOnly  bool   `form:"reorder_only" json:"reorder_only"`
}

func (item StockItem) QuantityRemaining() int {
	return item.QuantityPurchased - item.QuantitySold
}

func (item *StockItem) deriveReorderFlag() {
	item.ReorderRequired = reorderFlagOf(item.QuantityRemaining() <= item.ReorderLevel)
}

func (input *NewStockItem) validate(tx *gorm.DB) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.PurchasePrice.IsNegative() || input.SalePrice.IsNegative() {
		return utils.ValidationError("prices must not be negative")
	}
	if err := utils.ValidateScale("purchase price", input.PurchasePrice, utils.MoneyPlaces); err != nil {
		return err
	}
	if err := utils.ValidateScale("sale price", input.SalePrice, utils.MoneyPlaces); err != nil {
		return err
	}
	if err := validateDimension(tx, DimensionItemType, input.ItemType, true); err != nil {
		return err
	}
	if err := validateDimension(tx, DimensionItemCategory, input.ItemCategory, true); err != nil {
		return err
	}
	return validateDimension(tx, DimensionItemSubcategory, input.ItemSubcategory, true)
}

/* ledger operations; callers hold the item row lock inside their transaction */

func lockStockItem(ctx context.Context, tx *gorm.DB, itemId string) (*StockItem, error) {
	item, err := utils.FetchModelForUpdate[StockItem](ctx, tx, "item_id", itemId)
	if err != nil {
		if isNotFound(err) {
			return nil, utils.InvalidReferenceError("unknown stock item %q", itemId)
		}
		return nil, err
	}
	return item, nil
}

func saveStockCounters(tx *gorm.DB, item *StockItem) error {
	item.deriveReorderFlag()
	return tx.Model(&StockItem{}).Where("item_id = ?", item.ItemId).Updates(map[string]interface{}{
		"quantity_purchased": item.QuantityPurchased,
		"quantity_sold":      item.QuantitySold,
		"reorder_required":   item.ReorderRequired,
	}).Error
}

func checkMovementQty(qty int) error {
	if qty < 0 {
		return utils.ValidationError("quantity must not be negative")
	}
	return nil
}

func receiveStock(tx *gorm.DB, item *StockItem, qty int) error {
	if err := checkMovementQty(qty); err != nil {
		return err
	}
	item.QuantityPurchased += qty
	return saveStockCounters(tx, item)
}

func issueStock(tx *gorm.DB, item *StockItem, qty int) error {
	if err := checkMovementQty(qty); err != nil {
		return err
	}
	if qty > item.QuantityRemaining() {
		return utils.InsufficientStockError("%s has %d remaining, %d requested", item.ItemId, item.QuantityRemaining(), qty)
	}
	item.QuantitySold += qty
	return saveStockCounters(tx, item)
}

// reverseReceive takes back purchased units; units already sold cannot be un-purchased.
func reverseReceive(tx *gorm.DB, item *StockItem, qty int) error {
	if err := checkMovementQty(qty); err != nil {
		return err
	}
	if qty > item.QuantityRemaining() || qty > item.QuantityPurchased {
		return utils.InsufficientStockError("cannot reverse %d purchased units of %s, only %d remaining", qty, item.ItemId, item.QuantityRemaining())
	}
	item.QuantityPurchased -= qty
	return saveStockCounters(tx, item)
}

func reverseIssue(tx *gorm.DB, item *StockItem, qty int) error {
	if err := checkMovementQty(qty); err != nil {
		return err
	}
	if qty > item.QuantitySold {
		return utils.ValidationError("cannot reverse %d sold units of %s, only %d recorded", qty, item.ItemId, item.QuantitySold)
	}
	item.QuantitySold -= qty
	return saveStockCounters(tx, item)
}

/* CRUD */

func CreateStockItem(ctx context.Context, input *NewStockItem) (*StockItem, error) {
	ctx, span := startSpan(ctx, "CreateStockItem")
	input.ItemId = strings.TrimSpace(input.ItemId)
	generated := input.ItemId == ""

	var item StockItem
	err := withIdentifierRetry(ctx, EntityStockItem, generated, func() error {
		return runInTransaction(ctx, func(tx *gorm.DB) error {
			if err := input.validate(tx); err != nil {
				return err
			}
			itemId := input.ItemId
			if generated {
				var err error
				if itemId, err = nextIdTx(tx, EntityStockItem); err != nil {
					return err
				}
			} else if taken, err := identifierTaken(tx, EntityStockItem, itemId); err != nil {
				return err
			} else if taken {
				return utils.DuplicateIdentifierError(itemId)
			}

			item = StockItem{
				ItemId:          itemId,
				ItemType:        input.ItemType,
				ItemCategory:    input.ItemCategory,
				ItemSubcategory: input.ItemSubcategory,
				ItemName:        strings.TrimSpace(input.ItemName),
				PurchasePrice:   input.PurchasePrice,
				SalePrice:       input.SalePrice,
				ReorderLevel:    input.ReorderLevel,
			}
			item.deriveReorderFlag()
			if err := tx.Create(&item).Error; err != nil {
				return utils.TranslateWriteError(err, itemId)
			}
			return nil
		})
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateStockItem changes catalogue fields only; quantities move through orders.
func UpdateStockItem(ctx context.Context, itemId string, input *NewStockItem) (*StockItem, error) {
	ctx, span := startSpan(ctx, "UpdateStockItem", attribute.String("item_id", itemId))
	var item *StockItem
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		if err := input.validate(tx); err != nil {
			return err
		}
		if input.ItemId != "" && input.ItemId != itemId {
			return utils.ValidationError("item id cannot be changed")
		}
		var err error
		item, err = utils.FetchModelForUpdate[StockItem](ctx, tx, "item_id", itemId)
		if err != nil {
			return err
		}
		item.ItemType = input.ItemType
		item.ItemCategory = input.ItemCategory
		item.ItemSubcategory = input.ItemSubcategory
		item.ItemName = strings.TrimSpace(input.ItemName)
		item.PurchasePrice = input.PurchasePrice
		item.SalePrice = input.SalePrice
		item.ReorderLevel = input.ReorderLevel
		item.deriveReorderFlag()
		return tx.Model(&StockItem{}).Where("item_id = ?", itemId).Updates(map[string]interface{}{
			"item_type":        item.ItemType,
			"item_category":    item.ItemCategory,
			"item_subcategory": item.ItemSubcategory,
			"item_name":        item.ItemName,
			"purchase_price":   item.PurchasePrice,
			"sale_price":       item.SalePrice,
			"reorder_level":    item.ReorderLevel,
			"reorder_required": item.ReorderRequired,
		}).Error
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func DeleteStockItem(ctx context.Context, itemId string) (*StockItem, error) {
	ctx, span := startSpan(ctx, "DeleteStockItem", attribute.String("item_id", itemId))
	var item *StockItem
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		item, err = utils.FetchModelForUpdate[StockItem](ctx, tx, "item_id", itemId)
		if err != nil {
			return err
		}

		switch config.GetStockItemDeleteGuard() {
		case config.StockItemDeleteGuardRemaining:
			if item.QuantityRemaining() != 0 {
				return utils.HasStockOrHistoryError("%s still has %d units in stock", itemId, item.QuantityRemaining())
			}
		default:
			if item.QuantityPurchased != 0 || item.QuantitySold != 0 {
				return utils.HasStockOrHistoryError("%s has purchased %d and sold %d units", itemId, item.QuantityPurchased, item.QuantitySold)
			}
		}

		// order lines reference the item in both modes
		for _, model := range []interface{}{&PurchaseDetail{}, &SalesDetail{}} {
			var count int64
			if err := tx.Model(model).Where("item_id = ?", itemId).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return utils.HasStockOrHistoryError("%s is referenced by %d order lines", itemId, count)
			}
		}
		return tx.Where("item_id = ?", itemId).Delete(&StockItem{}).Error
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func GetStockItem(ctx context.Context, itemId string) (*StockItem, error) {
	db := config.GetDB()
	return utils.FetchModel[StockItem](ctx, db, "item_id", itemId)
}

func ListStockItems(ctx context.Context, filter StockItemFilter) ([]*StockItem, error) {
	db := config.GetDB()
	var results []*StockItem

	dbCtx := db.WithContext(ctx)
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		dbCtx = dbCtx.Where("item_name LIKE ? OR item_id LIKE ?", like, like)
	}
	if filter.ItemType != "" {
		dbCtx = dbCtx.Where("item_type = ?", filter.ItemType)
	}
	if filter.ItemCategory != "" {
		dbCtx = dbCtx.Where("item_category = ?", filter.ItemCategory)
	}
	if filter.ReorderOnly {
		dbCtx = dbCtx.Where("reorder_required = ?", ReorderFlagYes)
	}
	if err := dbCtx.Order("item_id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func ListReorderItems(ctx context.Context) ([]*StockItem, error) {
	return ListStockItems(ctx, StockItemFilter{ReorderOnly: true})
}
