package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simsfs/inventory_backend/config"
	"github.com/simsfs/inventory_backend/models"
)

const dashboardCacheKey = "report:dashboard"

type DashboardResponse struct {
	TotalSales      decimal.Decimal `json:"total_sales"`
	TotalPurchases  decimal.Decimal `json:"total_purchases"`
	Net             decimal.Decimal `json:"net"`
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	TotalPayable    decimal.Decimal `json:"total_payable"`
	TopCounty       *CountySales    `json:"top_county"`
	TopItem         *ItemSales      `json:"top_item"`
	StockItemCount  int64           `json:"stock_item_count"`
	ReorderCount    int64           `json:"reorder_count"`
}

type CountySales struct {
	County string          `json:"county"`
	Amount decimal.Decimal `json:"amount"`
}

type ItemSales struct {
	ItemId   string          `json:"item_id"`
	ItemName string          `json:"item_name"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

type orderSums struct {
	Total   decimal.Decimal
	Settled decimal.Decimal
}

func GetDashboard(ctx context.Context) (*DashboardResponse, error) {
	start := time.Now()
	defer logSlowReport(ctx, "dashboard", start, nil)

	return cached(dashboardCacheKey, func() (*DashboardResponse, error) {
		return buildDashboard(ctx)
	})
}

func buildDashboard(ctx context.Context) (*DashboardResponse, error) {
	db := config.GetDB().WithContext(ctx)

	var sales, purchases orderSums
	if err := db.Model(&models.SalesOrder{}).
		Select("COALESCE(SUM(total_amount), 0) AS total, COALESCE(SUM(amount_received), 0) AS settled").
		Scan(&sales).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PurchaseOrder{}).
		Select("COALESCE(SUM(total_amount), 0) AS total, COALESCE(SUM(amount_paid), 0) AS settled").
		Scan(&purchases).Error; err != nil {
		return nil, err
	}

	resp := DashboardResponse{
		TotalSales:      sales.Total,
		TotalPurchases:  purchases.Total,
		Net:             sales.Total.Sub(purchases.Total),
		TotalReceivable: sales.Total.Sub(sales.Settled),
		TotalPayable:    purchases.Total.Sub(purchases.Settled),
	}

	var counties []*CountySales
	if err := db.Model(&models.SalesOrder{}).
		Select("county, SUM(total_amount) AS amount").
		Where("county <> ''").
		Group("county").
		Order("amount DESC").
		Limit(1).
		Scan(&counties).Error; err != nil {
		return nil, err
	}
	if len(counties) > 0 {
		resp.TopCounty = counties[0]
	}

	var items []*ItemSales
	if err := db.Model(&models.SalesDetail{}).
		Select("item_id, MAX(item_name) AS item_name, SUM(quantity_sold) AS quantity, SUM(line_total) AS amount").
		Group("item_id").
		Order("amount DESC").
		Limit(1).
		Scan(&items).Error; err != nil {
		return nil, err
	}
	if len(items) > 0 {
		resp.TopItem = items[0]
	}

	if err := db.Model(&models.StockItem{}).Count(&resp.StockItemCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.StockItem{}).
		Where("reorder_required = ?", models.ReorderFlagYes).
		Count(&resp.ReorderCount).Error; err != nil {
		return nil, err
	}
	return &resp, nil
}
