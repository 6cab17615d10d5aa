package models_test

import (
	"context"
	"testing"

	"github.com/simsfs/inventory_backend/models"
	"github.com/simsfs/inventory_backend/utils"
)

// stockUp receives qty units of every item through one purchase order.
func stockUp(t *testing.T, ctx context.Context, qty int, items ...*models.StockItem) {
	t.Helper()
	supplier := mustCreateSupplier(t, ctx, "Wholesale")
	var lines []models.NewOrderLine
	for _, item := range items {
		lines = append(lines, line(item.ItemId, qty, "0", "0"))
	}
	if _, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		OrderDate:  testDate,
		SupplierId: supplier.SupplierId,
		Details:    lines,
	}); err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
}

func TestCreateSalesOrder(t *testing.T) {
	ctx := setupTestDB(t)
	item := mustCreateItem(t, ctx, "Drill", "100", "150", 2)
	stockUp(t, ctx, 10, item)
	customer := mustCreateCustomer(t, ctx, "BuildCo")

	order, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		OrderDate:  testDate,
		CustomerId: customer.CustomerId,
		Details: []models.NewOrderLine{
			line(item.ItemId, 4, "0", "0"),
			line(item.ItemId, 1, "200", "16"),
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}
	if order.SoId != "SO00001" || order.InvoiceNumber != "I00001" {
		t.Fatalf("ids = %s/%s", order.SoId, order.InvoiceNumber)
	}
	// 4*150*1.02 + 1*200*1.16*1.02
	stored := mustGetSalesOrder(t, ctx, order.SoId)
	assertSalesOrderTotal(t, stored, "848.64")
	if stored.CustomerName != "BuildCo" || stored.County != "Mombasa" {
		t.Fatalf("customer snapshot = %s/%s", stored.CustomerName, stored.County)
	}
	assertStock(t, ctx, item.ItemId, 10, 5)
	assertDecimal(t, "customer owed", mustGetCustomer(t, ctx, customer.CustomerId).TotalSales, "848.64")
}

func TestCreateSalesOrderInsufficientStockIsAllOrNothing(t *testing.T) {
	ctx := setupTestDB(t)
	plenty := mustCreateItem(t, ctx, "Plenty", "10", "15", 0)
	scarce := mustCreateItem(t, ctx, "Scarce", "10", "15", 0)
	stockUp(t, ctx, 5, plenty)
	stockUp(t, ctx, 2, scarce)
	customer := mustCreateCustomer(t, ctx, "BuildCo")

	_, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		OrderDate:  testDate,
		CustomerId: customer.CustomerId,
		Details: []models.NewOrderLine{
			line(plenty.ItemId, 3, "15", "0"),
			line(scarce.ItemId, 10, "15", "0"),
		},
	})
	assertErrorIs(t, err, utils.ErrInsufficientStock)

	assertStock(t, ctx, plenty.ItemId, 5, 0)
	assertStock(t, ctx, scarce.ItemId, 2, 0)
	orders, err := models.ListSalesOrders(ctx, models.SalesOrderFilter{})
	if err != nil {
		t.Fatalf("ListSalesOrders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("len(orders) = %d, want 0", len(orders))
	}
	assertDecimal(t, "customer owed", mustGetCustomer(t, ctx, customer.CustomerId).TotalSales, "0")

	// the next order still gets the first number
	order, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		OrderDate:  testDate,
		CustomerId: customer.CustomerId,
		Details:    []models.NewOrderLine{line(scarce.ItemId, 2, "15", "0")},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}
	if order.SoId != "SO00001" {
		t.Fatalf("so_id = %s, want SO00001", order.SoId)
	}
	assertStock(t, ctx, scarce.ItemId, 2, 2)
}

func TestUpdateSalesOrderReleasesStockBeforeReissuing(t *testing.T) {
	ctx := setupTestDB(t)
	drill := mustCreateItem(t, ctx, "Drill", "100", "150", 0)
	saw := mustCreateItem(t, ctx, "Saw", "100", "150", 0)
	stockUp(t, ctx, 10, drill, saw)
	customer := mustCreateCustomer(t, ctx, "BuildCo")

	order, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		OrderDate:  testDate,
		CustomerId: customer.CustomerId,
		Details:    []models.NewOrderLine{line(drill.ItemId, 10, "150", "0")},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}
	assertStock(t, ctx, drill.ItemId, 10, 10)

	// the existing line moves to saws while a new line takes 6 of the freed drills
	moved := line(saw.ItemId, 4, "150", "0")
	moved.DetailId = mustGetSalesOrder(t, ctx, order.SoId).Details[0].DetailId
	if _, err := models.UpdateSalesOrder(ctx, order.SoId, &models.NewSalesOrder{
		OrderDate:  testDate,
		CustomerId: customer.CustomerId,
		Details:    []models.NewOrderLine{moved, line(drill.ItemId, 6, "150", "0")},
	}); err != nil {
		t.Fatalf("UpdateSalesOrder: %v", err)
	}
	assertStock(t, ctx, drill.ItemId, 10, 6)
	assertStock(t, ctx, saw.ItemId, 10, 4)
	assertSalesOrderTotal(t, mustGetSalesOrder(t, ctx, order.SoId), "1530.00")
	assertDecimal(t, "customer owed", mustGetCustomer(t, ctx, customer.CustomerId).TotalSales, "1530.00")

	// growing past the stock fails and leaves the previous state
	moved.Quantity = 11
	_, err = models.UpdateSalesOrder(ctx, order.SoId, &models.NewSalesOrder{
		OrderDate:  testDate,
		CustomerId: customer.CustomerId,
		Details:    []models.NewOrderLine{moved},
	})
	assertErrorIs(t, err, utils.ErrInsufficientStock)
	assertStock(t, ctx, drill.ItemId, 10, 6)
	assertStock(t, ctx, saw.ItemId, 10, 4)
}

func TestDeleteSalesOrderRestoresStock(t *testing.T) {
	ctx := setupTestDB(t)
	item := mustCreateItem(t, ctx, "Drill", "100", "150", 3)
	stockUp(t, ctx, 5, item)
	customer := mustCreateCustomer(t, ctx, "BuildCo")

	order, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		OrderDate:  testDate,
		CustomerId: customer.CustomerId,
		Details: []models.NewOrderLine{
			line(item.ItemId, 2, "150", "0"),
			line(item.ItemId, 1, "150", "0"),
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}
	got := assertStock(t, ctx, item.ItemId, 5, 3)
	if got.ReorderRequired != models.ReorderFlagYes {
		t.Fatalf("reorder_required = %s", got.ReorderRequired)
	}

	var single string
	for _, d := range mustGetSalesOrder(t, ctx, order.SoId).Details {
		if d.QuantitySold == 1 {
			single = d.DetailId
		}
	}
	if _, err := models.DeleteSalesDetail(ctx, single); err != nil {
		t.Fatalf("DeleteSalesDetail: %v", err)
	}
	assertStock(t, ctx, item.ItemId, 5, 2)
	assertSalesOrderTotal(t, mustGetSalesOrder(t, ctx, order.SoId), "306.00")

	if _, err := models.DeleteSalesOrder(ctx, order.SoId); err != nil {
		t.Fatalf("DeleteSalesOrder: %v", err)
	}
	got = assertStock(t, ctx, item.ItemId, 5, 0)
	if got.ReorderRequired != models.ReorderFlagNo {
		t.Fatalf("reorder_required = %s", got.ReorderRequired)
	}
	assertDecimal(t, "customer owed", mustGetCustomer(t, ctx, customer.CustomerId).TotalSales, "0")
}

func TestUpdateSalesOrderKeepsStoredPrice(t *testing.T) {
	ctx := setupTestDB(t)
	saw := mustCreateItem(t, ctx, "Saw", "100", "150", 0)
	stockUp(t, ctx, 5, saw)
	customer := mustCreateCustomer(t, ctx, "Jane")

	order, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		OrderDate:  testDate,
		CustomerId: customer.CustomerId,
		Details:    []models.NewOrderLine{line(saw.ItemId, 2, "120", "0")},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}
	assertSalesOrderTotal(t, mustGetSalesOrder(t, ctx, order.SoId), "244.80")

	kept := models.NewOrderLine{DetailId: order.Details[0].DetailId, ItemId: saw.ItemId, Quantity: 2}
	if _, err := models.UpdateSalesOrder(ctx, order.SoId, &models.NewSalesOrder{
		OrderDate:  "06/01/2024",
		CustomerId: customer.CustomerId,
		Details:    []models.NewOrderLine{kept},
	}); err != nil {
		t.Fatalf("UpdateSalesOrder: %v", err)
	}

	stored := mustGetSalesOrder(t, ctx, order.SoId)
	assertSalesOrderTotal(t, stored, "244.80")
	assertDecimal(t, "kept unit price", stored.Details[0].UnitPrice, "120")
	assertDecimal(t, "customer owed", mustGetCustomer(t, ctx, customer.CustomerId).TotalSales, "244.80")
	assertStock(t, ctx, saw.ItemId, 5, 2)
}
