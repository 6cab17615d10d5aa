package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simsfs/inventory_backend/config"
	"github.com/simsfs/inventory_backend/utils"
)

// ReconciliationReport is one drift finding. Findings of a run share a correlation id.
type ReconciliationReport struct {
	ID            int       `gorm:"primary_key" json:"id"`
	CheckType     string    `gorm:"size:50;index;not null" json:"check_type"`  // e.g. ORDER_TOTAL, STOCK_PURCHASED
	EntityType    string    `gorm:"size:50;index;not null" json:"entity_type"` // e.g. PurchaseOrder, StockItem
	EntityId      string    `gorm:"size:20;index;not null" json:"entity_id"`
	Details       string    `gorm:"type:text" json:"details"` // human-readable mismatch detail
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	CheckOrderTotal       = "ORDER_TOTAL"
	CheckAmountSettled    = "AMOUNT_SETTLED"
	CheckPartyOwed        = "PARTY_OWED"
	CheckPartyPaid        = "PARTY_PAID"
	CheckNegativeBalance  = "NEGATIVE_BALANCE"
	CheckOverSettled      = "OVER_SETTLED"
	CheckStockPurchased   = "STOCK_PURCHASED"
	CheckStockSold        = "STOCK_SOLD"
	CheckStockRemaining   = "STOCK_REMAINING"
	CheckReorderFlag      = "REORDER_FLAG"
	CheckStaleOrderStatus = "STALE_STATUS"
)

type reconciler struct {
	correlationId string
	findings      []*ReconciliationReport
}

func (r *reconciler) add(checkType string, entityType string, entityId string, format string, args ...any) {
	r.findings = append(r.findings, &ReconciliationReport{
		CheckType:     checkType,
		EntityType:    entityType,
		EntityId:      entityId,
		Details:       fmt.Sprintf(format, args...),
		CorrelationId: r.correlationId,
	})
}

func (r *reconciler) compare(checkType string, entityType string, entityId string, field string, stored decimal.Decimal, expected decimal.Decimal) {
	if !stored.Equal(expected) {
		r.add(checkType, entityType, entityId, "%s is %s, expected %s", field, stored.StringFixed(2), expected.StringFixed(2))
	}
}

func sumBy[T any](rows []T, key func(T) string, value func(T) decimal.Decimal) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, row := range rows {
		k := key(row)
		sums[k] = sums[k].Add(value(row))
	}
	return sums
}

func countBy[T any](rows []T, key func(T) string, value func(T) int) map[string]int {
	sums := make(map[string]int)
	for _, row := range rows {
		sums[key(row)] += value(row)
	}
	return sums
}

// RunReconciliationChecks compares every stored running total with the value recomputed
// from its source rows. Ledger data is only read; findings are written to reconciliation_reports.
func RunReconciliationChecks(ctx context.Context) (string, []*ReconciliationReport, error) {
	ctx, span := startSpan(ctx, "RunReconciliationChecks")
	db := config.GetDB().WithContext(ctx)
	logger := config.GetLogger()

	cid, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || cid == "" {
		cid = uuid.NewString()
	}
	r := &reconciler{correlationId: cid}

	var (
		purchaseOrders  []PurchaseOrder
		purchaseDetails []PurchaseDetail
		payments        []Payment
		salesOrders     []SalesOrder
		salesDetails    []SalesDetail
		receipts        []Receipt
		suppliers       []Supplier
		customers       []Customer
		items           []StockItem
	)
	for _, dest := range []interface{}{&purchaseOrders, &purchaseDetails, &payments, &salesOrders, &salesDetails, &receipts, &suppliers, &customers, &items} {
		if err := db.Find(dest).Error; err != nil {
			endSpan(span, err)
			return cid, nil, err
		}
	}

	// orders
	poLines := sumBy(purchaseDetails, func(d PurchaseDetail) string { return d.PoId }, func(d PurchaseDetail) decimal.Decimal { return d.LineTotal })
	poPaid := sumBy(payments, func(p Payment) string { return p.PoId }, func(p Payment) decimal.Decimal { return p.AmountPaid })
	for _, o := range purchaseOrders {
		r.compare(CheckOrderTotal, "PurchaseOrder", o.PoId, "total_amount", o.TotalAmount, poLines[o.PoId])
		r.compare(CheckAmountSettled, "PurchaseOrder", o.PoId, "amount_paid", o.AmountPaid, poPaid[o.PoId])
		if o.AmountPaid.GreaterThan(o.TotalAmount) {
			r.add(CheckOverSettled, "PurchaseOrder", o.PoId, "amount_paid %s exceeds total_amount %s", o.AmountPaid.StringFixed(2), o.TotalAmount.StringFixed(2))
		}
		derived := DeriveStatus(o.TotalAmount, o.AmountPaid)
		if derived.SettlementStatus != o.PaymentStatus || derived.ShippingStatus != o.ShippingStatus {
			r.add(CheckStaleOrderStatus, "PurchaseOrder", o.PoId, "statuses %s/%s, expected %s/%s", o.PaymentStatus, o.ShippingStatus, derived.SettlementStatus, derived.ShippingStatus)
		}
	}
	soLines := sumBy(salesDetails, func(d SalesDetail) string { return d.SoId }, func(d SalesDetail) decimal.Decimal { return d.LineTotal })
	soReceived := sumBy(receipts, func(rc Receipt) string { return rc.SoId }, func(rc Receipt) decimal.Decimal { return rc.AmountReceived })
	for _, o := range salesOrders {
		r.compare(CheckOrderTotal, "SalesOrder", o.SoId, "total_amount", o.TotalAmount, soLines[o.SoId])
		r.compare(CheckAmountSettled, "SalesOrder", o.SoId, "amount_received", o.AmountReceived, soReceived[o.SoId])
		if o.AmountReceived.GreaterThan(o.TotalAmount) {
			r.add(CheckOverSettled, "SalesOrder", o.SoId, "amount_received %s exceeds total_amount %s", o.AmountReceived.StringFixed(2), o.TotalAmount.StringFixed(2))
		}
		derived := DeriveStatus(o.TotalAmount, o.AmountReceived)
		if derived.SettlementStatus != o.ReceiptStatus || derived.ShippingStatus != o.ShippingStatus {
			r.add(CheckStaleOrderStatus, "SalesOrder", o.SoId, "statuses %s/%s, expected %s/%s", o.ReceiptStatus, o.ShippingStatus, derived.SettlementStatus, derived.ShippingStatus)
		}
	}

	// parties
	supplierOwed := sumBy(purchaseOrders, func(o PurchaseOrder) string { return o.SupplierId }, func(o PurchaseOrder) decimal.Decimal { return o.TotalAmount })
	supplierPaid := sumBy(payments, func(p Payment) string { return p.SupplierId }, func(p Payment) decimal.Decimal { return p.AmountPaid })
	for _, s := range suppliers {
		r.compare(CheckPartyOwed, "Supplier", s.SupplierId, "total_purchases", s.TotalPurchases, supplierOwed[s.SupplierId])
		r.compare(CheckPartyPaid, "Supplier", s.SupplierId, "total_payments", s.TotalPayments, supplierPaid[s.SupplierId])
		if s.Balance().IsNegative() {
			r.add(CheckNegativeBalance, "Supplier", s.SupplierId, "balance is %s", s.Balance().StringFixed(2))
		}
	}
	customerOwed := sumBy(salesOrders, func(o SalesOrder) string { return o.CustomerId }, func(o SalesOrder) decimal.Decimal { return o.TotalAmount })
	customerPaid := sumBy(receipts, func(rc Receipt) string { return rc.CustomerId }, func(rc Receipt) decimal.Decimal { return rc.AmountReceived })
	for _, c := range customers {
		r.compare(CheckPartyOwed, "Customer", c.CustomerId, "total_sales", c.TotalSales, customerOwed[c.CustomerId])
		r.compare(CheckPartyPaid, "Customer", c.CustomerId, "total_payments", c.TotalPayments, customerPaid[c.CustomerId])
		if c.Balance().IsNegative() {
			r.add(CheckNegativeBalance, "Customer", c.CustomerId, "balance is %s", c.Balance().StringFixed(2))
		}
	}

	// stock
	purchased := countBy(purchaseDetails, func(d PurchaseDetail) string { return d.ItemId }, func(d PurchaseDetail) int { return d.QuantityPurchased })
	sold := countBy(salesDetails, func(d SalesDetail) string { return d.ItemId }, func(d SalesDetail) int { return d.QuantitySold })
	for _, item := range items {
		if item.QuantityPurchased != purchased[item.ItemId] {
			r.add(CheckStockPurchased, "StockItem", item.ItemId, "quantity_purchased is %d, order lines sum to %d", item.QuantityPurchased, purchased[item.ItemId])
		}
		if item.QuantitySold != sold[item.ItemId] {
			r.add(CheckStockSold, "StockItem", item.ItemId, "quantity_sold is %d, order lines sum to %d", item.QuantitySold, sold[item.ItemId])
		}
		if item.QuantityRemaining() < 0 {
			r.add(CheckStockRemaining, "StockItem", item.ItemId, "quantity_remaining is %d", item.QuantityRemaining())
		}
		if expected := reorderFlagOf(item.QuantityRemaining() <= item.ReorderLevel); item.ReorderRequired != expected {
			r.add(CheckReorderFlag, "StockItem", item.ItemId, "reorder_required is %s, expected %s", item.ReorderRequired, expected)
		}
	}

	if len(r.findings) > 0 {
		if err := db.CreateInBatches(r.findings, 100).Error; err != nil {
			config.LogError(logger, "models", "RunReconciliationChecks", "store findings", cid, err)
			endSpan(span, err)
			return cid, nil, err
		}
		config.LogWarning(logger, "models", "RunReconciliationChecks",
			fmt.Sprintf("%d reconciliation findings", len(r.findings)), cid)
	}
	endSpan(span, nil)
	return cid, r.findings, nil
}
