package models

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	percentScale        = decimal.NewFromInt(100)
	dispatchedThreshold = decimal.NewFromInt(50)
	inTransitThreshold  = decimal.NewFromInt(75)
	deliveredThreshold  = decimal.NewFromInt(100)
)

type StatusResult struct {
	PaymentPercentage decimal.Decimal  `json:"payment_percentage"`
	SettlementStatus  SettlementStatus `json:"settlement_status"`
	ShippingStatus    ShippingStatus   `json:"shipping_status"`
}

// DeriveStatus maps (total, settled) to both status families. It has no side effects.
func DeriveStatus(total decimal.Decimal, settled decimal.Decimal) StatusResult {
	pct := decimal.Zero
	if total.IsPositive() {
		pct = settled.Div(total).Mul(percentScale)
	}

	result := StatusResult{PaymentPercentage: pct}
	switch {
	case !settled.IsPositive():
		result.SettlementStatus = SettlementStatusPending
	case settled.GreaterThanOrEqual(total):
		result.SettlementStatus = SettlementStatusCompleted
	default:
		result.SettlementStatus = SettlementStatusPartialPayment
	}

	// anything above zero but below 50% (including the (0,1) gap) is PROCESSING
	switch {
	case !pct.IsPositive():
		result.ShippingStatus = ShippingStatusPending
	case pct.LessThan(dispatchedThreshold):
		result.ShippingStatus = ShippingStatusProcessing
	case pct.LessThan(inTransitThreshold):
		result.ShippingStatus = ShippingStatusDispatched
	case pct.LessThan(deliveredThreshold):
		result.ShippingStatus = ShippingStatusInTransit
	default:
		result.ShippingStatus = ShippingStatusDelivered
	}
	return result
}

func applyPurchaseOrderStatus(tx *gorm.DB, order *PurchaseOrder) error {
	result := DeriveStatus(order.TotalAmount, order.AmountPaid)
	if err := getOrCreateDimension(tx, DimensionPaymentStatus, result.SettlementStatus.String()); err != nil {
		return err
	}
	if err := getOrCreateDimension(tx, DimensionShippingStatus, result.ShippingStatus.String()); err != nil {
		return err
	}
	order.PaymentStatus = result.SettlementStatus
	order.ShippingStatus = result.ShippingStatus
	return tx.Model(&PurchaseOrder{}).Where("po_id = ?", order.PoId).Updates(map[string]interface{}{
		"payment_status":  order.PaymentStatus,
		"shipping_status": order.ShippingStatus,
	}).Error
}

func applySalesOrderStatus(tx *gorm.DB, order *SalesOrder) error {
	result := DeriveStatus(order.TotalAmount, order.AmountReceived)
	if err := getOrCreateDimension(tx, DimensionReceiptStatus, result.SettlementStatus.String()); err != nil {
		return err
	}
	if err := getOrCreateDimension(tx, DimensionShippingStatus, result.ShippingStatus.String()); err != nil {
		return err
	}
	order.ReceiptStatus = result.SettlementStatus
	order.ShippingStatus = result.ShippingStatus
	return tx.Model(&SalesOrder{}).Where("so_id = ?", order.SoId).Updates(map[string]interface{}{
		"receipt_status":  order.ReceiptStatus,
		"shipping_status": order.ShippingStatus,
	}).Error
}

// RecalculateAllStatuses re-derives the statuses of every order and returns how many were swept.
func RecalculateAllStatuses(ctx context.Context) (int, error) {
	ctx, span := startSpan(ctx, "RecalculateAllStatuses")
	var count int
	err := runInTransaction(ctx, func(tx *gorm.DB) error {
		var purchaseOrders []*PurchaseOrder
		if err := tx.Order("po_id").Find(&purchaseOrders).Error; err != nil {
			return err
		}
		for _, order := range purchaseOrders {
			if err := applyPurchaseOrderStatus(tx, order); err != nil {
				return err
			}
		}

		var salesOrders []*SalesOrder
		if err := tx.Order("so_id").Find(&salesOrders).Error; err != nil {
			return err
		}
		for _, order := range salesOrders {
			if err := applySalesOrderStatus(tx, order); err != nil {
				return err
			}
		}
		count = len(purchaseOrders) + len(salesOrders)
		return nil
	})
	endSpan(span, err)
	if err != nil {
		return 0, err
	}
	return count, nil
}
