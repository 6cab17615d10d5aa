package models_test

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/simsfs/inventory_backend/config"
	"github.com/simsfs/inventory_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testDate = "05/01/2024"

// setupTestDB installs a fresh in-memory store with reference data.
func setupTestDB(t *testing.T) context.Context {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	config.SetDB(db)
	config.SetRedis(nil)

	if err := models.MigrateTable(); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}

	ctx := context.Background()
	err = models.SeedReferenceData(ctx, map[models.DimensionKind][]string{
		models.DimensionItemType:        {"Goods"},
		models.DimensionItemCategory:    {"Hardware"},
		models.DimensionItemSubcategory: {"Tools"},
		models.DimensionCounty:          {"Nairobi", "Mombasa"},
		models.DimensionTown:            {"Westlands", "Nyali"},
		models.DimensionPaymentMode:     {"Cash", "M-Pesa"},
	})
	if err != nil {
		t.Fatalf("SeedReferenceData: %v", err)
	}
	return ctx
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: got %s, want %s", name, got.String(), want)
	}
}

func assertErrorIs(t *testing.T, err error, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func mustCreateItem(t *testing.T, ctx context.Context, name string, purchasePrice string, salePrice string, reorderLevel int) *models.StockItem {
	t.Helper()
	item, err := models.CreateStockItem(ctx, &models.NewStockItem{
		ItemType:        "Goods",
		ItemCategory:    "Hardware",
		ItemSubcategory: "Tools",
		ItemName:        name,
		PurchasePrice:   dec(purchasePrice),
		SalePrice:       dec(salePrice),
		ReorderLevel:    reorderLevel,
	})
	if err != nil {
		t.Fatalf("CreateStockItem(%s): %v", name, err)
	}
	return item
}

func mustCreateSupplier(t *testing.T, ctx context.Context, name string) *models.Supplier {
	t.Helper()
	supplier, err := models.CreateSupplier(ctx, &models.NewParty{
		Name:   name,
		Phone:  "+254712345678",
		County: "Nairobi",
		Town:   "Westlands",
	})
	if err != nil {
		t.Fatalf("CreateSupplier(%s): %v", name, err)
	}
	return supplier
}

func mustCreateCustomer(t *testing.T, ctx context.Context, name string) *models.Customer {
	t.Helper()
	customer, err := models.CreateCustomer(ctx, &models.NewParty{
		Name:   name,
		County: "Mombasa",
		Town:   "Nyali",
	})
	if err != nil {
		t.Fatalf("CreateCustomer(%s): %v", name, err)
	}
	return customer
}

func mustGetItem(t *testing.T, ctx context.Context, itemId string) *models.StockItem {
	t.Helper()
	item, err := models.GetStockItem(ctx, itemId)
	if err != nil {
		t.Fatalf("GetStockItem(%s): %v", itemId, err)
	}
	return item
}

func mustGetSupplier(t *testing.T, ctx context.Context, supplierId string) *models.Supplier {
	t.Helper()
	supplier, err := models.GetSupplier(ctx, supplierId)
	if err != nil {
		t.Fatalf("GetSupplier(%s): %v", supplierId, err)
	}
	return supplier
}

func mustGetCustomer(t *testing.T, ctx context.Context, customerId string) *models.Customer {
	t.Helper()
	customer, err := models.GetCustomer(ctx, customerId)
	if err != nil {
		t.Fatalf("GetCustomer(%s): %v", customerId, err)
	}
	return customer
}

func mustGetPurchaseOrder(t *testing.T, ctx context.Context, poId string) *models.PurchaseOrder {
	t.Helper()
	order, err := models.GetPurchaseOrder(ctx, poId)
	if err != nil {
		t.Fatalf("GetPurchaseOrder(%s): %v", poId, err)
	}
	return order
}

func mustGetSalesOrder(t *testing.T, ctx context.Context, soId string) *models.SalesOrder {
	t.Helper()
	order, err := models.GetSalesOrder(ctx, soId)
	if err != nil {
		t.Fatalf("GetSalesOrder(%s): %v", soId, err)
	}
	return order
}

// assertStock checks both counters and that the reorder flag matches them.
func assertStock(t *testing.T, ctx context.Context, itemId string, purchased int, sold int) *models.StockItem {
	t.Helper()
	item := mustGetItem(t, ctx, itemId)
	if item.QuantityPurchased != purchased || item.QuantitySold != sold {
		t.Fatalf("%s: purchased/sold = %d/%d, want %d/%d", itemId, item.QuantityPurchased, item.QuantitySold, purchased, sold)
	}
	if item.QuantityRemaining() < 0 {
		t.Fatalf("%s: negative remaining %d", itemId, item.QuantityRemaining())
	}
	wantFlag := models.ReorderFlagNo
	if item.QuantityRemaining() <= item.ReorderLevel {
		wantFlag = models.ReorderFlagYes
	}
	if item.ReorderRequired != wantFlag {
		t.Fatalf("%s: reorder_required = %s, want %s", itemId, item.ReorderRequired, wantFlag)
	}
	return item
}

func line(itemId string, qty int, price string, tax string) models.NewOrderLine {
	return models.NewOrderLine{
		ItemId:    itemId,
		Quantity:  qty,
		UnitPrice: dec(price),
		TaxRate:   dec(tax),
	}
}

// assertPurchaseOrderTotal checks total_amount against the sum of the stored line totals.
func assertPurchaseOrderTotal(t *testing.T, order *models.PurchaseOrder, want string) {
	t.Helper()
	sum := decimal.Zero
	for _, d := range order.Details {
		sum = sum.Add(d.LineTotal)
	}
	if !sum.Equal(order.TotalAmount) {
		t.Fatalf("%s: total_amount %s != sum of lines %s", order.PoId, order.TotalAmount, sum)
	}
	assertDecimal(t, order.PoId+" total_amount", order.TotalAmount, want)
}

func assertSalesOrderTotal(t *testing.T, order *models.SalesOrder, want string) {
	t.Helper()
	sum := decimal.Zero
	for _, d := range order.Details {
		sum = sum.Add(d.LineTotal)
	}
	if !sum.Equal(order.TotalAmount) {
		t.Fatalf("%s: total_amount %s != sum of lines %s", order.SoId, order.TotalAmount, sum)
	}
	assertDecimal(t, order.SoId+" total_amount", order.TotalAmount, want)
}
