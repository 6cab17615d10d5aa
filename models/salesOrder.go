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

type SalesOrder struct {
	SoId           string           `gorm:"primaryKey;size:20" json:"so_id"`
	InvoiceNumber  string           `gorm:"size:20;not null;uniqueIndex" json:"invoice_number"`
	OrderDate      time.Time        `gorm:"not null;index" json:"order_date"`
	CustomerId     string           `gorm:"size:20;not null;index" json:"customer_id"`
	CustomerName   string           `gorm:"size:255" json:"customer_name"`
	County         string           `gorm:"size:100" json:"county"`
	Town           string           `gorm:"size:100" json:"town"`
	TotalAmount    decimal.Decimal  `gorm:"type:decimal(15,2);default:0" json:"total_amount"`
	AmountReceived decimal.Decimal  `gorm:"type:decimal(15,2);default:0" json:"amount_received"`
	ReceiptStatus  SettlementStatus `gorm:"size:30;not null" json:"receipt_status"`
	ShippingStatus ShippingStatus   `gorm:"size:30;not null" json:"shipping_status"`
	Details        []SalesDetail    `gorm:"foreignKey:SoId;references:SoId;constraint:OnDelete:CASCADE" json:"details"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// SalesDetail snapshots the customer and item at the time the line was written.
type SalesDetail struct {
	DetailId        string          `gorm:"primaryKey;size:20" json:"detail_id"`
	SoId            string          `gorm:"size:20;not null;index" json:"so_id"`
	InvoiceNumber   string          `gorm:"size:20" json:"invoice_number"`
	CustomerId      string          `gorm:"size:20;index" json:"customer_id"`
	CustomerName    string          `gorm:"size:255" json:"customer_name"`
	County          string          `gorm:"size:100" json:"county"`
	Town            string          `gorm:"size:100" json:"town"`
	ItemId          string          `gorm:"size:20;not null;index" json:"item_id"`
	ItemType        string          `gorm:"size:100" json:"item_type"`
	ItemCategory    string          `gorm:"size:100" json:"item_category"`
	ItemSubcategory string          `gorm:"size:100" json:"item_subcategory"`
	ItemName        string          `gorm:"size:255" json:"item_name"`
	QuantitySold    int             `gorm:"not null" json:"quantity_sold"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"unit_price"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"tax_rate"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(15,4);default:0" json:"tax_amount"`
	ShippingFee     decimal.Decimal `gorm:"type:decimal(15,4);default:0" json:"shipping_fee"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"line_total"`
}

type NewSalesOrder struct {
	SoId          string         `json:"so_id" binding:"omitempty,max=20"`
	InvoiceNumber string         `json:"invoice_number" binding:"omitempty,max=20"`
	OrderDate     string         `json:"order_date" binding:"required"`
	CustomerId    string         `json:"customer_id" binding:"required"`
	Details       []NewOrderLine `json:"details" binding:"required,min=1,dive"`
}

type SalesOrderFilter struct {
	Search         string `form:"search" json:"search"`
	CustomerId     string `form:"customer_id" json:"customer_id"`
	ReceiptStatus  string `form:"receipt_status" json:"receipt_status"`
	ShippingStatus string `form:"shipping_status" json:"shipping_status"`
}

func (order SalesOrder) Outstanding() decimal.Decimal {
	return order.TotalAmount.Sub(order.AmountReceived)
}

func (order SalesOrder) PaymentPercentage() decimal.Decimal {
	return DeriveStatus(order.TotalAmount, order.AmountReceived).PaymentPercentage
}

// validate input for both create & update, returns the parsed order date
func (input *NewSalesOrder) validate() (time.Time, error) {
	input.SoId = strings.TrimSpace(input.SoId)
	input.InvoiceNumber = strings.TrimSpace(input.InvoiceNumber)
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

func buildSalesDetail(order *SalesOrder, item *StockItem, detailId string, line NewOrderLine) SalesDetail {
	unitPrice, amounts := salesSide.priceLine(item, line)
	return SalesDetail{
		DetailId:        detailId,
		SoId:            order.SoId,
		InvoiceNumber:   order.InvoiceNumber,
		CustomerId:      order.CustomerId,
		CustomerName:    order.CustomerName,
		County:          order.County,
		Town:            order.Town,
		ItemId:          item.ItemId,
		ItemType:        item.ItemType,
		ItemCategory:    item.ItemCategory,
		ItemSubcategory: item.ItemSubcategory,
		ItemName:        item.ItemName,
		QuantitySold:    line.Quantity,
		UnitPrice:       unitPrice,
		TaxRate:         line.TaxRate,
		TaxAmount:       amounts.Tax,
		ShippingFee:     amounts.ShippingFee,
		LineTotal:       amounts.LineTotal,
	}
}

// insertSalesLines writes new lines; ledger effects must already be applied.
func insertSalesLines(ctx context.Context, tx *gorm.DB, order *SalesOrder, lines []NewOrderLine) error {
	for _, line := range lines {
		item, err := lockStockItem(ctx, tx, line.ItemId)
		if err != nil {
			return err
		}
		detailId, err := newLineId(tx, salesSide, line.DetailId)
		if err != nil {
			return err
		}
		detail := buildSalesDetail(order, item, detailId, line)
		if err := tx.Create(&detail).Error; err != nil {
			return utils.TranslateWriteError(err, detailId)
		}
	}
	return nil
}

// recomputeSalesOrderTotal sets total_amount to the sum of the stored line totals.
func recomputeSalesOrderTotal(tx *gorm.DB, order *SalesOrder) error {
	var details []SalesDetail
	if err := tx.Where("so_id = ?", order.SoId).Order("detail_id").Find(&details).Error; err != nil {
		return err
	}
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.LineTotal)
	}
	order.TotalAmount = total
	order.Details = details
	if order.TotalAmount.LessThan(order.AmountReceived) {
		config.LogWarning(config.GetLogger(), "models", "recomputeSalesOrderTotal",
			"sales order total is below the amount received", map[string]interface{}{
				"so_id": order.SoId, "total_amount": order.TotalAmount, "amount_received": order.AmountReceived,
			})
	}
	return tx.Model(&SalesOrder{}).Where("so_id = ?", order.SoId).Update("total_amount", order.TotalAmount).Error
}

func lockSalesOrder(ctx context.Context, tx *gorm.DB, soId string) (*SalesOrder, error) {
	return utils.FetchModelForUpdate[SalesOrder](ctx, tx, "so_id", soId, "Details")
}

func CreateSalesOrder(ctx context.Context, input *NewSalesOrder) (*SalesOrder, error) {
	ctx, span := startSpan(ctx, "CreateSalesOrder")
	generated := strings.TrimSpace(input.SoId) == ""

	var order *SalesOrder
	err := withIdentifierRetry(ctx, EntitySalesOrder, generated || generatesLineIds(input.Details), func() error {
		return runInTransaction(ctx, func(tx *gorm.DB) error {
			orderDate, err := input.validate()
			if err != nil {
				return err
			}

			soId := input.SoId
			if generated {
				if soId, err = nextIdTx(tx, EntitySalesOrder); err != nil {
					return err
				}
			} else if taken, err := identifierTaken(tx, EntitySalesOrder, soId); err != nil {
				return err
			} else if taken {
				return utils.DuplicateIdentifierError(soId)
			}

			invoiceNumber := input.InvoiceNumber
			if invoiceNumber == "" {
				if invoiceNumber, err = pairedIdentifier(tx, EntitySalesOrder, soId, EntityInvoice); err != nil {
					return err
				}
			} else if taken, err := identifierTaken(tx, EntityInvoice, invoiceNumber); err != nil {
				return err
			} else if taken {
				return utils.DuplicateIdentifierError(invoiceNumber)
			}

			customer, err := lockCustomer(ctx, tx, input.CustomerId)
			if err != nil {
				return err
			}

			order = &SalesOrder{
				SoId:           soId,
				InvoiceNumber:  invoiceNumber,
				OrderDate:      orderDate,
				CustomerId:     customer.CustomerId,
				CustomerName:   customer.CustomerName,
				County:         customer.County,
				Town:           customer.Town,
				TotalAmount:    decimal.Zero,
				AmountReceived: decimal.Zero,
				ReceiptStatus:  SettlementStatusPending,
				ShippingStatus: ShippingStatusPending,
			}
			if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
				return utils.TranslateWriteError(err, soId)
			}

			var movements []stockMovement
			for _, line := range input.Details {
				movements = append(movements, lineMovements("", 0, line.ItemId, line.Quantity)...)
			}
			if err := applyMovements(ctx, tx, salesSide, movements); err != nil {
				return err
			}
			if err := insertSalesLines(ctx, tx, order, input.Details); err != nil {
				return err
			}

			if err := recomputeSalesOrderTotal(tx, order); err != nil {
				return err
			}
			if err := applySalesOrderStatus(tx, order); err != nil {
				return err
			}
			return recordCustomerObligation(ctx, tx, order.CustomerId, order.TotalAmount)
		})
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateSalesOrder replaces the header fields and diffs the submitted lines
// against the stored ones by detail id.
func UpdateSalesOrder(ctx context.Context, soId string, input *NewSalesOrder) (*SalesOrder, error) {
	ctx, span := startSpan(ctx, "UpdateSalesOrder", attribute.String("so_id", soId))

	var order *SalesOrder
	err := withIdentifierRetry(ctx, EntitySalesOrder, generatesLineIds(input.Details), func() error {
		return runInTransaction(ctx, func(tx *gorm.DB) error {
			orderDate, err := input.validate()
			if err != nil {
				return err
			}
			if input.SoId != "" && input.SoId != soId {
				return utils.ValidationError("sales order id cannot be changed")
			}

			if order, err = lockSalesOrder(ctx, tx, soId); err != nil {
				return err
			}
			oldTotal := order.TotalAmount
			oldCustomerId := order.CustomerId

			if input.InvoiceNumber != "" && input.InvoiceNumber != order.InvoiceNumber {
				if taken, err := identifierTaken(tx, EntityInvoice, input.InvoiceNumber); err != nil {
					return err
				} else if taken {
					return utils.DuplicateIdentifierError(input.InvoiceNumber)
				}
				order.InvoiceNumber = input.InvoiceNumber
			}

			customer, err := lockCustomer(ctx, tx, input.CustomerId)
			if err != nil {
				return err
			}
			if customer.CustomerId != oldCustomerId {
				count, err := utils.ResourceCountWhere[Receipt](ctx, tx, "so_id = ?", soId)
				if err != nil {
					return err
				}
				if count > 0 {
					return utils.ValidationError("sales order %s has receipts and cannot move to another customer", soId)
				}
			}
			order.OrderDate = orderDate
			order.CustomerId = customer.CustomerId
			order.CustomerName = customer.CustomerName
			order.County = customer.County
			order.Town = customer.Town

			stored := make(map[string]SalesDetail, len(order.Details))
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
					return utils.InvalidReferenceError("order line %s does not belong to %s", line.DetailId, soId)
				}
				kept[line.DetailId] = keepStoredPrice(line, old.ItemId, old.UnitPrice)
				movements = append(movements, lineMovements(old.ItemId, old.QuantitySold, line.ItemId, line.Quantity)...)
			}
			var removed []string
			for _, d := range order.Details {
				if _, ok := kept[d.DetailId]; !ok {
					removed = append(removed, d.DetailId)
					movements = append(movements, lineMovements(d.ItemId, d.QuantitySold, "", 0)...)
				}
			}

			if err := applyMovements(ctx, tx, salesSide, movements); err != nil {
				return err
			}

			if len(removed) > 0 {
				if err := tx.Where("detail_id IN ?", removed).Delete(&SalesDetail{}).Error; err != nil {
					return err
				}
			}
			for detailId, line := range kept {
				item, err := lockStockItem(ctx, tx, line.ItemId)
				if err != nil {
					return err
				}
				detail := buildSalesDetail(order, item, detailId, line)
				if err := tx.Save(&detail).Error; err != nil {
					return err
				}
			}
			if err := insertSalesLines(ctx, tx, order, added); err != nil {
				return err
			}

			// header snapshot on every line and receipt follows the header
			if err := tx.Model(&SalesDetail{}).Where("so_id = ?", soId).Updates(map[string]interface{}{
				"invoice_number": order.InvoiceNumber,
				"customer_id":    order.CustomerId,
				"customer_name":  order.CustomerName,
				"county":         order.County,
				"town":           order.Town,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&Receipt{}).Where("so_id = ?", soId).Update("invoice_number", order.InvoiceNumber).Error; err != nil {
				return err
			}

			if err := tx.Model(&SalesOrder{}).Where("so_id = ?", soId).Updates(map[string]interface{}{
				"invoice_number": order.InvoiceNumber,
				"order_date":     order.OrderDate,
				"customer_id":    order.CustomerId,
				"customer_name":  order.CustomerName,
				"county":         order.County,
				"town":           order.Town,
			}).Error; err != nil {
				return utils.TranslateWriteError(err, order.InvoiceNumber)
			}
			if err := recomputeSalesOrderTotal(tx, order); err != nil {
				return err
			}

			if order.CustomerId == oldCustomerId {
				if err := recordCustomerObligation(ctx, tx, order.CustomerId, order.TotalAmount.Sub(oldTotal)); err != nil {
					return err
				}
			} else {
				if err := recordCustomerObligation(ctx, tx, oldCustomerId, oldTotal.Neg()); err != nil {
					return err
				}
				if err := recordCustomerObligation(ctx, tx, order.CustomerId, order.TotalAmount); err != nil {
					return err
				}
			}
			return applySalesOrderStatus(tx, order)
		})
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteSalesDetail removes one line and reverses its stock and amount effects.
func DeleteSalesDetail(ctx context.Context, detailId string) (*SalesOrder, error) {
	ctx, span := startSpan(ctx, "DeleteSalesDetail", attribute.String("detail_id", detailId))

	var order *SalesOrder
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		detail, err := utils.FetchModel[SalesDetail](ctx, tx, "detail_id", detailId)
		if err != nil {
			return err
		}
		if order, err = lockSalesOrder(ctx, tx, detail.SoId); err != nil {
			return err
		}
		oldTotal := order.TotalAmount

		movements := lineMovements(detail.ItemId, detail.QuantitySold, "", 0)
		if err := applyMovements(ctx, tx, salesSide, movements); err != nil {
			return err
		}
		if err := tx.Where("detail_id = ?", detailId).Delete(&SalesDetail{}).Error; err != nil {
			return err
		}
		if err := recomputeSalesOrderTotal(tx, order); err != nil {
			return err
		}
		if err := recordCustomerObligation(ctx, tx, order.CustomerId, order.TotalAmount.Sub(oldTotal)); err != nil {
			return err
		}
		if config.RederiveStatusOnDetailDelete() {
			return applySalesOrderStatus(tx, order)
		}
		return nil
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteSalesOrder removes an order without receipts, reversing every line.
func DeleteSalesOrder(ctx context.Context, soId string) (*SalesOrder, error) {
	ctx, span := startSpan(ctx, "DeleteSalesOrder", attribute.String("so_id", soId))

	var order *SalesOrder
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		if order, err = lockSalesOrder(ctx, tx, soId); err != nil {
			return err
		}
		count, err := utils.ResourceCountWhere[Receipt](ctx, tx, "so_id = ?", soId)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.HasStockOrHistoryError("sales order %s has %d receipts", soId, count)
		}

		var movements []stockMovement
		for _, d := range order.Details {
			movements = append(movements, lineMovements(d.ItemId, d.QuantitySold, "", 0)...)
		}
		if err := applyMovements(ctx, tx, salesSide, movements); err != nil {
			return err
		}
		if err := tx.Where("so_id = ?", soId).Delete(&SalesDetail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("so_id = ?", soId).Delete(&SalesOrder{}).Error; err != nil {
			return err
		}
		return recordCustomerObligation(ctx, tx, order.CustomerId, order.TotalAmount.Neg())
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func GetSalesOrder(ctx context.Context, soId string) (*SalesOrder, error) {
	db := config.GetDB()
	return utils.FetchModel[SalesOrder](ctx, db, "so_id", soId, "Details")
}

func ListSalesOrders(ctx context.Context, filter SalesOrderFilter) ([]*SalesOrder, error) {
	db := config.GetDB()
	var results []*SalesOrder

	dbCtx := db.WithContext(ctx)
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		dbCtx = dbCtx.Where("so_id LIKE ? OR invoice_number LIKE ? OR customer_name LIKE ?", like, like, like)
	}
	if filter.CustomerId != "" {
		dbCtx = dbCtx.Where("customer_id = ?", filter.CustomerId)
	}
	if filter.ReceiptStatus != "" {
		if !SettlementStatus(filter.ReceiptStatus).IsValid() {
			return nil, utils.ValidationError("unknown receipt status %q", filter.ReceiptStatus)
		}
		dbCtx = dbCtx.Where("receipt_status = ?", filter.ReceiptStatus)
	}
	if filter.ShippingStatus != "" {
		if !ShippingStatus(filter.ShippingStatus).IsValid() {
			return nil, utils.ValidationError("unknown shipping status %q", filter.ShippingStatus)
		}
		dbCtx = dbCtx.Where("shipping_status = ?", filter.ShippingStatus)
	}
	if err := dbCtx.Order("order_date DESC, so_id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
