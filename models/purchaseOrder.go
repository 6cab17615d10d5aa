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
	"gorm.io/gorm/clause"
)

type PurchaseOrder struct {
	PoId           string           `gorm:"primaryKey;size:20" json:"po_id"`
	BillNumber     string           `gorm:"size:20;not null;uniqueIndex" json:"bill_number"`
	OrderDate      time.Time        `gorm:"not null;index" json:"order_date"`
	SupplierId     string           `gorm:"size:20;not null;index" json:"supplier_id"`
	SupplierName   string           `gorm:"size:255" json:"supplier_name"`
	County         string           `gorm:"size:100" json:"county"`
	Town           string           `gorm:"size:100" json:"town"`
	TotalAmount    decimal.Decimal  `gorm:"type:decimal(15,2);default:0" json:"total_amount"`
	AmountPaid     decimal.Decimal  `gorm:"type:decimal(15,2);default:0" json:"amount_paid"`
	PaymentStatus  SettlementStatus `gorm:"size:30;not null" json:"payment_status"`
	ShippingStatus ShippingStatus   `gorm:"size:30;not null" json:"shipping_status"`
	Details        []PurchaseDetail `gorm:"foreignKey:PoId;references:PoId;constraint:OnDelete:CASCADE" json:"details"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// PurchaseDetail snapshots the supplier and item at the time the line was written.
type PurchaseDetail struct {
	DetailId          string          `gorm:"primaryKey;size:20" json:"detail_id"`
	PoId              string          `gorm:"size:20;not null;index" json:"po_id"`
	BillNumber        string          `gorm:"size:20" json:"bill_number"`
	SupplierId        string          `gorm:"size:20;index" json:"supplier_id"`
	SupplierName      string          `gorm:"size:255" json:"supplier_name"`
	County            string          `gorm:"size:100" json:"county"`
	Town              string          `gorm:"size:100" json:"town"`
	ItemId            string          `gorm:"size:20;not null;index" json:"item_id"`
	ItemType          string          `gorm:"size:100" json:"item_type"`
	ItemCategory      string          `gorm:"size:100" json:"item_category"`
	ItemSubcategory   string          `gorm:"size:100" json:"item_subcategory"`
	ItemName          string          `gorm:"size:255" json:"item_name"`
	QuantityPurchased int             `gorm:"not null" json:"quantity_purchased"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"unit_cost"`
	TaxRate           decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"tax_rate"`
	TaxAmount         decimal.Decimal `gorm:"type:decimal(15,4);default:0" json:"tax_amount"`
	ShippingFee       decimal.Decimal `gorm:"type:decimal(15,4);default:0" json:"shipping_fee"`
	LineTotal         decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"line_total"`
}

type NewPurchaseOrder struct {
	PoId       string         `json:"po_id" binding:"omitempty,max=20"`
	BillNumber string         `json:"bill_number" binding:"omitempty,max=20"`
	OrderDate  string         `json:"order_date" binding:"required"`
	SupplierId string         `json:"supplier_id" binding:"required"`
	Details    []NewOrderLine `json:"details" binding:"required,min=1,dive"`
}

type PurchaseOrderFilter struct {
	Search         string `form:"search" json:"search"`
	SupplierId     string `form:"supplier_id" json:"supplier_id"`
	PaymentStatus  string `form:"payment_status" json:"payment_status"`
	ShippingStatus string `form:"shipping_status" json:"shipping_status"`
}

func (order PurchaseOrder) Outstanding() decimal.Decimal {
	return order.TotalAmount.Sub(order.AmountPaid)
}

func (order PurchaseOrder) PaymentPercentage() decimal.Decimal {
	return DeriveStatus(order.TotalAmount, order.AmountPaid).PaymentPercentage
}

// validate input for both create & update, returns the parsed order date
func (input *NewPurchaseOrder) validate() (time.Time, error) {
	input.PoId = strings.TrimSpace(input.PoId)
	input.BillNumber = strings.TrimSpace(input.BillNumber)
	if err := utils.ValidateStruct(input); err != nil {
		return time.Time{}, err
	}
	orderDate, err := utils.ParseDate(input.OrderDate)
	if err != nil {
		return time.Time{}, err
	}
	if err := validateOrderLines(input.Details); err != nil {
		return time.Time{}, err
	}
	return orderDate, nil
}

func buildPurchaseDetail(order *PurchaseOrder, item *StockItem, detailId string, line NewOrderLine) PurchaseDetail {
	unitCost, amounts := purchaseSide.priceLine(item, line)
	return PurchaseDetail{
		DetailId:          detailId,
		PoId:              order.PoId,
		BillNumber:        order.BillNumber,
		SupplierId:        order.SupplierId,
		SupplierName:      order.SupplierName,
		County:            order.County,
		Town:              order.Town,
		ItemId:            item.ItemId,
		ItemType:          item.ItemType,
		ItemCategory:      item.ItemCategory,
		ItemSubcategory:   item.ItemSubcategory,
		ItemName:          item.ItemName,
		QuantityPurchased: line.Quantity,
		UnitCost:          unitCost,
		TaxRate:           line.TaxRate,
		TaxAmount:         amounts.Tax,
		ShippingFee:       amounts.ShippingFee,
		LineTotal:         amounts.LineTotal,
	}
}

// insertPurchaseLines writes new lines; ledger effects must already be applied.
func insertPurchaseLines(ctx context.Context, tx *gorm.DB, order *PurchaseOrder, lines []NewOrderLine) error {
	for _, line := range lines {
		item, err := lockStockItem(ctx, tx, line.ItemId)
		if err != nil {
			return err
		}
		detailId, err := newLineId(tx, purchaseSide, line.DetailId)
		if err != nil {
			return err
		}
		detail := buildPurchaseDetail(order, item, detailId, line)
		if err := tx.Create(&detail).Error; err != nil {
			return utils.TranslateWriteError(err, detailId)
		}
	}
	return nil
}

// recomputePurchaseOrderTotal sets total_amount to the sum of the stored line totals.
func recomputePurchaseOrderTotal(tx *gorm.DB, order *PurchaseOrder) error {
	var details []PurchaseDetail
	if err := tx.Where("po_id = ?", order.PoId).Order("detail_id").Find(&details).Error; err != nil {
		return err
	}
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.LineTotal)
	}
	order.TotalAmount = total
	order.Details = details
	if order.TotalAmount.LessThan(order.AmountPaid) {
		config.LogWarning(config.GetLogger(), "models", "recomputePurchaseOrderTotal",
			"purchase order total is below the amount paid", map[string]interface{}{
				"po_id": order.PoId, "total_amount": order.TotalAmount, "amount_paid": order.AmountPaid,
			})
	}
	return tx.Model(&PurchaseOrder{}).Where("po_id = ?", order.PoId).Update("total_amount", order.TotalAmount).Error
}

func lockPurchaseOrder(ctx context.Context, tx *gorm.DB, poId string) (*PurchaseOrder, error) {
	return utils.FetchModelForUpdate[PurchaseOrder](ctx, tx, "po_id", poId, "Details")
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	ctx, span := startSpan(ctx, "CreatePurchaseOrder")
	generated := strings.TrimSpace(input.PoId) == ""

	var order *PurchaseOrder
	err := withIdentifierRetry(ctx, EntityPurchaseOrder, generated || generatesLineIds(input.Details), func() error {
		return runInTransaction(ctx, func(tx *gorm.DB) error {
			orderDate, err := input.validate()
			if err != nil {
				return err
			}

			poId := input.PoId
			if generated {
				if poId, err = nextIdTx(tx, EntityPurchaseOrder); err != nil {
					return err
				}
			} else if taken, err := identifierTaken(tx, EntityPurchaseOrder, poId); err != nil {
				return err
			} else if taken {
				return utils.DuplicateIdentifierError(poId)
			}

			billNumber := input.BillNumber
			if billNumber == "" {
				if billNumber, err = pairedIdentifier(tx, EntityPurchaseOrder, poId, EntityBill); err != nil {
					return err
				}
			} else if taken, err := identifierTaken(tx, EntityBill, billNumber); err != nil {
				return err
			} else if taken {
				return utils.DuplicateIdentifierError(billNumber)
			}

			supplier, err := lockSupplier(ctx, tx, input.SupplierId)
			if err != nil {
				return err
			}

			order = &PurchaseOrder{
				PoId:           poId,
				BillNumber:     billNumber,
				OrderDate:      orderDate,
				SupplierId:     supplier.SupplierId,
				SupplierName:   supplier.SupplierName,
				County:         supplier.County,
				Town:           supplier.Town,
				TotalAmount:    decimal.Zero,
				AmountPaid:     decimal.Zero,
				PaymentStatus:  SettlementStatusPending,
				ShippingStatus: ShippingStatusPending,
			}
			if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
				return utils.TranslateWriteError(err, poId)
			}

			var movements []stockMovement
			for _, line := range input.Details {
				movements = append(movements, lineMovements("", 0, line.ItemId, line.Quantity)...)
			}
			if err := applyMovements(ctx, tx, purchaseSide, movements); err != nil {
				return err
			}
			if err := insertPurchaseLines(ctx, tx, order, input.Details); err != nil {
				return err
			}

			if err := recomputePurchaseOrderTotal(tx, order); err != nil {
				return err
			}
			if err := applyPurchaseOrderStatus(tx, order); err != nil {
				return err
			}
			return recordSupplierObligation(ctx, tx, order.SupplierId, order.TotalAmount)
		})
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdatePurchaseOrder replaces the header fields and diffs the submitted lines
// against the stored ones by detail id.
func UpdatePurchaseOrder(ctx context.Context, poId string, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	ctx, span := startSpan(ctx, "UpdatePurchaseOrder", attribute.String("po_id", poId))

	var order *PurchaseOrder
	err := withIdentifierRetry(ctx, EntityPurchaseOrder, generatesLineIds(input.Details), func() error {
		return runInTransaction(ctx, func(tx *gorm.DB) error {
			orderDate, err := input.validate()
			if err != nil {
				return err
			}
			if input.PoId != "" && input.PoId != poId {
				return utils.ValidationError("purchase order id cannot be changed")
			}

			if order, err = lockPurchaseOrder(ctx, tx, poId); err != nil {
				return err
			}
			oldTotal := order.TotalAmount
			oldSupplierId := order.SupplierId

			if input.BillNumber != "" && input.BillNumber != order.BillNumber {
				if taken, err := identifierTaken(tx, EntityBill, input.BillNumber); err != nil {
					return err
				} else if taken {
					return utils.DuplicateIdentifierError(input.BillNumber)
				}
				order.BillNumber = input.BillNumber
			}

			supplier, err := lockSupplier(ctx, tx, input.SupplierId)
			if err != nil {
				return err
			}
			if supplier.SupplierId != oldSupplierId {
				count, err := utils.ResourceCountWhere[Payment](ctx, tx, "po_id = ?", poId)
				if err != nil {
					return err
				}
				if count > 0 {
					return utils.ValidationError("purchase order %s has payments and cannot move to another supplier", poId)
				}
			}
			order.OrderDate = orderDate
			order.SupplierId = supplier.SupplierId
			order.SupplierName = supplier.SupplierName
			order.County = supplier.County
			order.Town = supplier.Town

			stored := make(map[string]PurchaseDetail, len(order.Details))
			for _, d := range order.Details {
				stored[d.DetailId] = d
			}
			kept := make(map[string]NewOrderLine)
			var added []NewOrderLine
			var movements []stockMovement
			for _, line := range input.Details {
				if line.DetailId == "" {
					added = append(added, line)
					movements = append(movements, lineMovements("", 0, line.ItemId, line.Quantity)...)
					continue
				}
				old, ok := stored[line.DetailId]
				if !ok {
					return utils.InvalidReferenceError("order line %s does not belong to %s", line.DetailId, poId)
				}
				kept[line.DetailId] = keepStoredPrice(line, old.ItemId, old.UnitCost)
				movements = append(movements, lineMovements(old.ItemId, old.QuantityPurchased, line.ItemId, line.Quantity)...)
			}
			var removed []string
			for _, d := range order.Details {
				if _, ok := kept[d.DetailId]; !ok {
					removed = append(removed, d.DetailId)
					movements = append(movements, lineMovements(d.ItemId, d.QuantityPurchased, "", 0)...)
				}
			}

			if err := applyMovements(ctx, tx, purchaseSide, movements); err != nil {
				return err
			}

			if len(removed) > 0 {
				if err := tx.Where("detail_id IN ?", removed).Delete(&PurchaseDetail{}).Error; err != nil {
					return err
				}
			}
			for detailId, line := range kept {
				item, err := lockStockItem(ctx, tx, line.ItemId)
				if err != nil {
					return err
				}
				detail := buildPurchaseDetail(order, item, detailId, line)
				if err := tx.Save(&detail).Error; err != nil {
					return err
				}
			}
			if err := insertPurchaseLines(ctx, tx, order, added); err != nil {
				return err
			}

			// header snapshot on every line and payment follows the header
			if err := tx.Model(&PurchaseDetail{}).Where("po_id = ?", poId).Updates(map[string]interface{}{
				"bill_number":   order.BillNumber,
				"supplier_id":   order.SupplierId,
				"supplier_name": order.SupplierName,
				"county":        order.County,
				"town":          order.Town,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&Payment{}).Where("po_id = ?", poId).Update("bill_number", order.BillNumber).Error; err != nil {
				return err
			}

			if err := tx.Model(&PurchaseOrder{}).Where("po_id = ?", poId).Updates(map[string]interface{}{
				"bill_number":   order.BillNumber,
				"order_date":    order.OrderDate,
				"supplier_id":   order.SupplierId,
				"supplier_name": order.SupplierName,
				"county":        order.County,
				"town":          order.Town,
			}).Error; err != nil {
				return utils.TranslateWriteError(err, order.BillNumber)
			}
			if err := recomputePurchaseOrderTotal(tx, order); err != nil {
				return err
			}

			if order.SupplierId == oldSupplierId {
				if err := recordSupplierObligation(ctx, tx, order.SupplierId, order.TotalAmount.Sub(oldTotal)); err != nil {
					return err
				}
			} else {
				if err := recordSupplierObligation(ctx, tx, oldSupplierId, oldTotal.Neg()); err != nil {
					return err
				}
				if err := recordSupplierObligation(ctx, tx, order.SupplierId, order.TotalAmount); err != nil {
					return err
				}
			}
			return applyPurchaseOrderStatus(tx, order)
		})
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// DeletePurchaseDetail removes one line and reverses its stock and amount effects.
func DeletePurchaseDetail(ctx context.Context, detailId string) (*PurchaseOrder, error) {
	ctx, span := startSpan(ctx, "DeletePurchaseDetail", attribute.String("detail_id", detailId))

	var order *PurchaseOrder
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		detail, err := utils.FetchModel[PurchaseDetail](ctx, tx, "detail_id", detailId)
		if err != nil {
			return err
		}
		if order, err = lockPurchaseOrder(ctx, tx, detail.PoId); err != nil {
			return err
		}
		oldTotal := order.TotalAmount

		movements := lineMovements(detail.ItemId, detail.QuantityPurchased, "", 0)
		if err := applyMovements(ctx, tx, purchaseSide, movements); err != nil {
			return err
		}
		if err := tx.Where("detail_id = ?", detailId).Delete(&PurchaseDetail{}).Error; err != nil {
			return err
		}
		if err := recomputePurchaseOrderTotal(tx, order); err != nil {
			return err
		}
		if err := recordSupplierObligation(ctx, tx, order.SupplierId, order.TotalAmount.Sub(oldTotal)); err != nil {
			return err
		}
		if config.RederiveStatusOnDetailDelete() {
			return applyPurchaseOrderStatus(tx, order)
		}
		return nil
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// DeletePurchaseOrder removes an order without payments, reversing every line.
func DeletePurchaseOrder(ctx context.Context, poId string) (*PurchaseOrder, error) {
	ctx, span := startSpan(ctx, "DeletePurchaseOrder", attribute.String("po_id", poId))

	var order *PurchaseOrder
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		if order, err = lockPurchaseOrder(ctx, tx, poId); err != nil {
			return err
		}
		count, err := utils.ResourceCountWhere[Payment](ctx, tx, "po_id = ?", poId)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.HasStockOrHistoryError("purchase order %s has %d payments", poId, count)
		}

		var movements []stockMovement
		for _, d := range order.Details {
			movements = append(movements, lineMovements(d.ItemId, d.QuantityPurchased, "", 0)...)
		}
		if err := applyMovements(ctx, tx, purchaseSide, movements); err != nil {
			return err
		}
		if err := tx.Where("po_id = ?", poId).Delete(&PurchaseDetail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("po_id = ?", poId).Delete(&PurchaseOrder{}).Error; err != nil {
			return err
		}
		return recordSupplierObligation(ctx, tx, order.SupplierId, order.TotalAmount.Neg())
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func GetPurchaseOrder(ctx context.Context, poId string) (*PurchaseOrder, error) {
	db := config.GetDB()
	return utils.FetchModel[PurchaseOrder](ctx, db, "po_id", poId, "Details")
}

func ListPurchaseOrders(ctx context.Context, filter PurchaseOrderFilter) ([]*PurchaseOrder, error) {
	db := config.GetDB()
	var results []*PurchaseOrder

	dbCtx := db.WithContext(ctx)
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		dbCtx = dbCtx.Where("po_id LIKE ? OR bill_number LIKE ? OR supplier_name LIKE ?", like, like, like)
	}
	if filter.SupplierId != "" {
		dbCtx = dbCtx.Where("supplier_id = ?", filter.SupplierId)
	}
	if filter.PaymentStatus != "" {
		if !SettlementStatus(filter.PaymentStatus).IsValid() {
			return nil, utils.ValidationError("unknown payment status %q", filter.PaymentStatus)
		}
		dbCtx = dbCtx.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.ShippingStatus != "" {
		if !ShippingStatus(filter.ShippingStatus).IsValid() {
			return nil, utils.ValidationError("unknown shipping status %q", filter.ShippingStatus)
		}
		dbCtx = dbCtx.Where("shipping_status = ?", filter.ShippingStatus)
	}
	if err := dbCtx.Order("order_date DESC, po_id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
