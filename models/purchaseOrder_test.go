package models_test

import (
	"testing"

	"github.com/simsfs/inventory_backend/models"
	"github.com/simsfs/inventory_backend/utils"
)

func TestPurchaseOrderRoundTrip(t *testing.T) {
	ctx := setupTestDB(t)
	hammer := mustCreateItem(t, ctx, "Hammer", "100", "130", 0)
	nails := mustCreateItem(t, ctx, "Nails", "50", "70", 0)
	supplier := mustCreateSupplier(t, ctx, "Acme")

	order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		OrderDate:  testDate,
		SupplierId: supplier.SupplierId,
		Details: []models.NewOrderLine{
			line(hammer.ItemId, 10, "100", "10"),
			line(nails.ItemId, 5, "50", "0"),
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	if order.PoId != "PO00001" || order.BillNumber != "B00001" {
		t.Fatalf("ids = %s/%s", order.PoId, order.BillNumber)
	}
	if order.SupplierName != "Acme" || order.County != "Nairobi" || order.Town != "Westlands" {
		t.Fatalf("supplier snapshot = %s/%s/%s", order.SupplierName, order.County, order.Town)
	}

	stored := mustGetPurchaseOrder(t, ctx, order.PoId)
	assertPurchaseOrderTotal(t, stored, "1363.50")
	if len(stored.Details) != 2 {
		t.Fatalf("len(details) = %d, want 2", len(stored.Details))
	}
	byItem := map[string]models.PurchaseDetail{}
	for _, d := range stored.Details {
		byItem[d.ItemId] = d
	}
	assertDecimal(t, "hammer line", byItem[hammer.ItemId].LineTotal, "1111.00")
	assertDecimal(t, "hammer tax", byItem[hammer.ItemId].TaxAmount, "100")
	assertDecimal(t, "hammer shipping", byItem[hammer.ItemId].ShippingFee, "11")
	assertDecimal(t, "nails line", byItem[nails.ItemId].LineTotal, "252.50")
	if byItem[hammer.ItemId].ItemName != "Hammer" || byItem[hammer.ItemId].BillNumber != "B00001" {
		t.Fatalf("detail snapshot = %+v", byItem[hammer.ItemId])
	}
	if stored.PaymentStatus != models.SettlementStatusPending || stored.ShippingStatus != models.ShippingStatusPending {
		t.Fatalf("status = %s/%s", stored.PaymentStatus, stored.ShippingStatus)
	}

	assertStock(t, ctx, hammer.ItemId, 10, 0)
	assertStock(t, ctx, nails.ItemId, 5, 0)
	assertDecimal(t, "supplier owed", mustGetSupplier(t, ctx, supplier.SupplierId).TotalPurchases, "1363.50")

	if _, err := models.DeletePurchaseDetail(ctx, byItem[hammer.ItemId].DetailId); err != nil {
		t.Fatalf("DeletePurchaseDetail: %v", err)
	}
	assertStock(t, ctx, hammer.ItemId, 0, 0)
	assertPurchaseOrderTotal(t, mustGetPurchaseOrder(t, ctx, order.PoId), "252.50")
	assertDecimal(t, "supplier owed", mustGetSupplier(t, ctx, supplier.SupplierId).TotalPurchases, "252.50")

	if _, err := models.DeletePurchaseOrder(ctx, order.PoId); err != nil {
		t.Fatalf("DeletePurchaseOrder: %v", err)
	}
	assertStock(t, ctx, nails.ItemId, 0, 0)
	assertDecimal(t, "supplier owed", mustGetSupplier(t, ctx, supplier.SupplierId).TotalPurchases, "0")
	if _, err := models.GetPurchaseOrder(ctx, order.PoId); err == nil {
		t.Fatalf("order still exists after delete")
	}
}

func TestCreatePurchaseOrderFallsBackToCatalogPrice(t *testing.T) {
	ctx := setupTestDB(t)
	item := mustCreateItem(t, ctx, "Glue", "20", "30", 0)
	supplier := mustCreateSupplier(t, ctx, "Acme")

	order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		OrderDate:  testDate,
		SupplierId: supplier.SupplierId,
		Details:    []models.NewOrderLine{line(item.ItemId, 2, "0", "0")},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	stored := mustGetPurchaseOrder(t, ctx, order.PoId)
	assertDecimal(t, "unit cost", stored.Details[0].UnitCost, "20")
	assertPurchaseOrderTotal(t, stored, "40.40")
}

func TestCreatePurchaseOrderRejectsBadInput(t *testing.T) {
	ctx := setupTestDB(t)
	item := mustCreateItem(t, ctx, "Rope", "10", "12", 0)
	supplier := mustCreateSupplier(t, ctx, "Acme")

	tests := []struct {
		name   string
		input  models.NewPurchaseOrder
		target error
	}{
		{"bad date", models.NewPurchaseOrder{OrderDate: "2024-01-05", SupplierId: supplier.SupplierId,
			Details: []models.NewOrderLine{line(item.ItemId, 1, "10", "0")}}, utils.ErrValidation},
		{"no lines", models.NewPurchaseOrder{OrderDate: testDate, SupplierId: supplier.SupplierId}, utils.ErrValidation},
		{"zero quantity", models.NewPurchaseOrder{OrderDate: testDate, SupplierId: supplier.SupplierId,
			Details: []models.NewOrderLine{line(item.ItemId, 0, "10", "0")}}, utils.ErrValidation},
		{"unknown supplier", models.NewPurchaseOrder{OrderDate: testDate, SupplierId: "SUP99999",
			Details: []models.NewOrderLine{line(item.ItemId, 1, "10", "0")}}, utils.ErrInvalidReference},
		{"unknown item", models.NewPurchaseOrder{OrderDate: testDate, SupplierId: supplier.SupplierId,
			Details: []models.NewOrderLine{line(item.ItemId, 1, "10", "0"), line("IT99999", 1, "10", "0")}}, utils.ErrInvalidReference},
	}
	for _, tt := range tests {
		_, err := models.CreatePurchaseOrder(ctx, &tt.input)
		if err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		assertErrorIs(t, err, tt.target)
	}

	// nothing from the failed attempts may remain
	assertStock(t, ctx, item.ItemId, 0, 0)
	orders, err := models.ListPurchaseOrders(ctx, models.PurchaseOrderFilter{})
	if err != nil {
		t.Fatalf("ListPurchaseOrders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("len(orders) = %d, want 0", len(orders))
	}
	assertDecimal(t, "supplier owed", mustGetSupplier(t, ctx, supplier.SupplierId).TotalPurchases, "0")
}

func TestUpdatePurchaseOrderAppliesDeltas(t *testing.T) {
	ctx := setupTestDB(t)
	hammer := mustCreateItem(t, ctx, "Hammer", "100", "130", 0)
	saw := mustCreateItem(t, ctx, "Saw", "200", "260", 0)
	supplier := mustCreateSupplier(t, ctx, "Acme")

	order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		OrderDate:  testDate,
		SupplierId: supplier.SupplierId,
		Details: []models.NewOrderLine{
			line(hammer.ItemId, 10, "100", "0"),
			line(saw.ItemId, 2, "200", "0"),
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	stored := mustGetPurchaseOrder(t, ctx, order.PoId)
	var hammerLine string
	for _, d := range stored.Details {
		if d.ItemId == hammer.ItemId {
			hammerLine = d.DetailId
		}
	}

	// hammer 10 -> 4, saw line dropped, new saw line of 1
	kept := line(hammer.ItemId, 4, "100", "0")
	kept.DetailId = hammerLine
	updated, err := models.UpdatePurchaseOrder(ctx, order.PoId, &models.NewPurchaseOrder{
		OrderDate:  "10/01/2024",
		SupplierId: supplier.SupplierId,
		Details:    []models.NewOrderLine{kept, line(saw.ItemId, 1, "200", "0")},
	})
	if err != nil {
		t.Fatalf("UpdatePurchaseOrder: %v", err)
	}
	if updated.BillNumber != order.BillNumber {
		t.Fatalf("bill number changed to %s", updated.BillNumber)
	}

	assertStock(t, ctx, hammer.ItemId, 4, 0)
	assertStock(t, ctx, saw.ItemId, 1, 0)
	// 404 + 202
	assertPurchaseOrderTotal(t, mustGetPurchaseOrder(t, ctx, order.PoId), "606.00")
	assertDecimal(t, "supplier owed", mustGetSupplier(t, ctx, supplier.SupplierId).TotalPurchases, "606.00")

	foreign := line(hammer.ItemId, 1, "100", "0")
	foreign.DetailId = "PD99999"
	_, err = models.UpdatePurchaseOrder(ctx, order.PoId, &models.NewPurchaseOrder{
		OrderDate:  testDate,
		SupplierId: supplier.SupplierId,
		Details:    []models.NewOrderLine{foreign},
	})
	assertErrorIs(t, err, utils.ErrInvalidReference)
	assertStock(t, ctx, hammer.ItemId, 4, 0)
}

func TestUpdatePurchaseOrderMovesSupplier(t *testing.T) {
	ctx := setupTestDB(t)
	item := mustCreateItem(t, ctx, "Hammer", "100", "130", 0)
	first := mustCreateSupplier(t, ctx, "Acme")
	second := mustCreateSupplier(t, ctx, "Globex")

	order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		OrderDate:  testDate,
		SupplierId: first.SupplierId,
		Details:    []models.NewOrderLine{line(item.ItemId, 1, "100", "0")},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	detailId := mustGetPurchaseOrder(t, ctx, order.PoId).Details[0].DetailId
	kept := line(item.ItemId, 1, "100", "0")
	kept.DetailId = detailId

	updated, err := models.UpdatePurchaseOrder(ctx, order.PoId, &models.NewPurchaseOrder{
		OrderDate:  testDate,
		SupplierId: second.SupplierId,
		Details:    []models.NewOrderLine{kept},
	})
	if err != nil {
		t.Fatalf("UpdatePurchaseOrder: %v", err)
	}
	if updated.SupplierName != "Globex" {
		t.Fatalf("supplier name = %s", updated.SupplierName)
	}
	assertDecimal(t, "first owed", mustGetSupplier(t, ctx, first.SupplierId).TotalPurchases, "0")
	assertDecimal(t, "second owed", mustGetSupplier(t, ctx, second.SupplierId).TotalPurchases, "101.00")
	if got := mustGetPurchaseOrder(t, ctx, order.PoId).Details[0].SupplierId; got != second.SupplierId {
		t.Fatalf("detail supplier = %s", got)
	}

	if _, err := models.AddPayment(ctx, &models.NewPayment{
		PaymentDate: testDate, PoId: order.PoId, PaymentMode: "Cash", Amount: dec("50"),
	}); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	_, err = models.UpdatePurchaseOrder(ctx, order.PoId, &models.NewPurchaseOrder{
		OrderDate:  testDate,
		SupplierId: first.SupplierId,
		Details:    []models.NewOrderLine{kept},
	})
	assertErrorIs(t, err, utils.ErrValidation)
}

func TestDeletePurchaseDetailStatusFlag(t *testing.T) {
	ctx := setupTestDB(t)
	item := mustCreateItem(t, ctx, "Hammer", "100", "130", 0)
	supplier := mustCreateSupplier(t, ctx, "Acme")

	create := func() *models.PurchaseOrder {
		order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
			OrderDate:  testDate,
			SupplierId: supplier.SupplierId,
			Details: []models.NewOrderLine{
				line(item.ItemId, 1, "100", "0"),
				line(item.ItemId, 9, "100", "0"),
			},
		})
		if err != nil {
			t.Fatalf("CreatePurchaseOrder: %v", err)
		}
		// 101 of 1010 paid is 10%
		if _, err := models.AddPayment(ctx, &models.NewPayment{
			PaymentDate: testDate, PoId: order.PoId, PaymentMode: "Cash", Amount: dec("101"),
		}); err != nil {
			t.Fatalf("AddPayment: %v", err)
		}
		return mustGetPurchaseOrder(t, ctx, order.PoId)
	}
	bigLine := func(order *models.PurchaseOrder) string {
		for _, d := range order.Details {
			if d.QuantityPurchased == 9 {
				return d.DetailId
			}
		}
		t.Fatalf("no 9-unit line on %s", order.PoId)
		return ""
	}

	rederived := create()
	if _, err := models.DeletePurchaseDetail(ctx, bigLine(rederived)); err != nil {
		t.Fatalf("DeletePurchaseDetail: %v", err)
	}
	got := mustGetPurchaseOrder(t, ctx, rederived.PoId)
	if got.PaymentStatus != models.SettlementStatusCompleted || got.ShippingStatus != models.ShippingStatusDelivered {
		t.Fatalf("rederived status = %s/%s", got.PaymentStatus, got.ShippingStatus)
	}

	t.Setenv("REDERIVE_STATUS_ON_DETAIL_DELETE", "false")
	legacy := create()
	if _, err := models.DeletePurchaseDetail(ctx, bigLine(legacy)); err != nil {
		t.Fatalf("DeletePurchaseDetail: %v", err)
	}
	got = mustGetPurchaseOrder(t, ctx, legacy.PoId)
	assertPurchaseOrderTotal(t, got, "101.00")
	if got.PaymentStatus != models.SettlementStatusPartialPayment || got.ShippingStatus != models.ShippingStatusProcessing {
		t.Fatalf("legacy status = %s/%s", got.PaymentStatus, got.ShippingStatus)
	}
}

func TestDeletePurchaseOrderGuards(t *testing.T) {
	ctx := setupTestDB(t)
	item := mustCreateItem(t, ctx, "Hammer", "100", "130", 0)
	supplier := mustCreateSupplier(t, ctx, "Acme")
	customer := mustCreateCustomer(t, ctx, "BuildCo")

	order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		OrderDate:  testDate,
		SupplierId: supplier.SupplierId,
		Details:    []models.NewOrderLine{line(item.ItemId, 10, "100", "0")},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	if _, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		OrderDate:  testDate,
		CustomerId: customer.CustomerId,
		Details:    []models.NewOrderLine{line(item.ItemId, 8, "130", "0")},
	}); err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}

	// 8 of the 10 received units are already sold
	_, err = models.DeletePurchaseOrder(ctx, order.PoId)
	assertErrorIs(t, err, utils.ErrInsufficientStock)
	assertStock(t, ctx, item.ItemId, 10, 8)

	payment, err := models.AddPayment(ctx, &models.NewPayment{
		PaymentDate: testDate, PoId: order.PoId, PaymentMode: "Cash", Amount: dec("10"),
	})
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	_, err = models.DeletePurchaseOrder(ctx, order.PoId)
	assertErrorIs(t, err, utils.ErrHasStockOrHistory)
	if _, err := models.GetPayment(ctx, payment.TransactionId); err != nil {
		t.Fatalf("payment lost: %v", err)
	}
}

func TestUpdatePurchaseOrderKeepsStoredPrice(t *testing.T) {
	ctx := setupTestDB(t)
	hammer := mustCreateItem(t, ctx, "Hammer", "100", "130", 0)
	nails := mustCreateItem(t, ctx, "Nails", "50", "70", 0)
	supplier := mustCreateSupplier(t, ctx, "Acme")

	order, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		OrderDate:  testDate,
		SupplierId: supplier.SupplierId,
		Details:    []models.NewOrderLine{line(hammer.ItemId, 10, "80", "0")},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	assertPurchaseOrderTotal(t, mustGetPurchaseOrder(t, ctx, order.PoId), "808.00")

	// the kept line is resent without a price; the new line has none either
	kept := models.NewOrderLine{DetailId: order.Details[0].DetailId, ItemId: hammer.ItemId, Quantity: 10}
	added := models.NewOrderLine{ItemId: nails.ItemId, Quantity: 1}
	if _, err := models.UpdatePurchaseOrder(ctx, order.PoId, &models.NewPurchaseOrder{
		OrderDate:  "06/01/2024",
		SupplierId: supplier.SupplierId,
		Details:    []models.NewOrderLine{kept, added},
	}); err != nil {
		t.Fatalf("UpdatePurchaseOrder: %v", err)
	}

	stored := mustGetPurchaseOrder(t, ctx, order.PoId)
	assertPurchaseOrderTotal(t, stored, "858.50")
	for _, d := range stored.Details {
		switch d.ItemId {
		case hammer.ItemId:
			assertDecimal(t, "kept unit cost", d.UnitCost, "80")
			assertDecimal(t, "kept line", d.LineTotal, "808.00")
		case nails.ItemId:
			assertDecimal(t, "added unit cost", d.UnitCost, "50")
		}
	}
	if got := utils.FormatDate(stored.OrderDate); got != "06/01/2024" {
		t.Fatalf("order date = %s", got)
	}
	assertDecimal(t, "supplier owed", mustGetSupplier(t, ctx, supplier.SupplierId).TotalPurchases, "858.50")
	assertStock(t, ctx, hammer.ItemId, 10, 0)
	assertStock(t, ctx, nails.ItemId, 1, 0)
}

func TestOrderLinesRejectExtraDecimalPlaces(t *testing.T) {
	ctx := setupTestDB(t)
	hammer := mustCreateItem(t, ctx, "Hammer", "100", "130", 0)
	supplier := mustCreateSupplier(t, ctx, "Acme")

	for name, bad := range map[string]models.NewOrderLine{
		"unit price": line(hammer.ItemId, 1, "10.001", "0"),
		"tax rate":   line(hammer.ItemId, 1, "10", "12.125"),
	} {
		_, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
			OrderDate:  testDate,
			SupplierId: supplier.SupplierId,
			Details:    []models.NewOrderLine{bad},
		})
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		assertErrorIs(t, err, utils.ErrValidation)
	}
	assertStock(t, ctx, hammer.ItemId, 0, 0)

	// trailing zeros are not extra precision
	if _, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		OrderDate:  testDate,
		SupplierId: supplier.SupplierId,
		Details:    []models.NewOrderLine{line(hammer.ItemId, 1, "10.000", "12.50")},
	}); err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}

	_, err := models.CreateStockItem(ctx, &models.NewStockItem{
		ItemType: "Goods", ItemCategory: "Hardware", ItemSubcategory: "Tools",
		ItemName: "Saw", PurchasePrice: dec("9.999"), SalePrice: dec("12"),
	})
	assertErrorIs(t, err, utils.ErrValidation)
}

func TestListOrdersRejectUnknownStatus(t *testing.T) {
	ctx := setupTestDB(t)
	hammer := mustCreateItem(t, ctx, "Hammer", "100", "130", 0)
	supplier := mustCreateSupplier(t, ctx, "Acme")
	mustCreateHammerOrder(t, ctx, supplier, hammer)

	_, err := models.ListPurchaseOrders(ctx, models.PurchaseOrderFilter{PaymentStatus: "PAID"})
	assertErrorIs(t, err, utils.ErrValidation)
	_, err = models.ListPurchaseOrders(ctx, models.PurchaseOrderFilter{ShippingStatus: "LOST"})
	assertErrorIs(t, err, utils.ErrValidation)
	_, err = models.ListSalesOrders(ctx, models.SalesOrderFilter{ReceiptStatus: "DONE"})
	assertErrorIs(t, err, utils.ErrValidation)
	_, err = models.ListSalesOrders(ctx, models.SalesOrderFilter{ShippingStatus: "pending"})
	assertErrorIs(t, err, utils.ErrValidation)

	orders, err := models.ListPurchaseOrders(ctx, models.PurchaseOrderFilter{
		PaymentStatus:  string(models.SettlementStatusPending),
		ShippingStatus: string(models.ShippingStatusPending),
	})
	if err != nil {
		t.Fatalf("ListPurchaseOrders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("len(orders) = %d, want 1", len(orders))
	}
}
