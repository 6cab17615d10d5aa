package models_test

import (
	"testing"

	"github.com/simsfs/inventory_backend/models"
	"github.com/simsfs/inventory_backend/utils"
)

func TestCreatePartyNormalizesPhone(t *testing.T) {
	ctx := setupTestDB(t)

	customer, err := models.CreateCustomer(ctx, &models.NewParty{Name: "BuildCo", Phone: "0712 345 678", County: "Mombasa"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if customer.Phone != "+254712345678" {
		t.Fatalf("phone = %s", customer.Phone)
	}
	if customer.CustomerId != "C00001" {
		t.Fatalf("customer_id = %s", customer.CustomerId)
	}

	_, err = models.CreateSupplier(ctx, &models.NewParty{Name: "Acme", Phone: "12"})
	assertErrorIs(t, err, utils.ErrValidation)
	_, err = models.CreateSupplier(ctx, &models.NewParty{Name: "Acme", Email: "not-an-email"})
	assertErrorIs(t, err, utils.ErrValidation)
	_, err = models.CreateSupplier(ctx, &models.NewParty{Name: "Acme", County: "Kisumu"})
	assertErrorIs(t, err, utils.ErrInvalidReference)
	_, err = models.CreateSupplier(ctx, &models.NewParty{Id: "C00001", Name: "Acme"})
	if err != nil {
		t.Fatalf("supplier ids are a separate series: %v", err)
	}
}

func TestUpdateSupplierRefreshesFields(t *testing.T) {
	ctx := setupTestDB(t)
	supplier := mustCreateSupplier(t, ctx, "Acme")

	updated, err := models.UpdateSupplier(ctx, supplier.SupplierId, &models.NewParty{
		Name: "Acme Ltd", Email: "sales@acme.co.ke", County: "Mombasa", Town: "Nyali",
	})
	if err != nil {
		t.Fatalf("UpdateSupplier: %v", err)
	}
	if updated.SupplierName != "Acme Ltd" || updated.Town != "Nyali" || updated.Phone != "" {
		t.Fatalf("updated = %+v", updated)
	}

	found, err := models.ListSuppliers(ctx, "ltd")
	if err != nil {
		t.Fatalf("ListSuppliers: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("len(found) = %d, want 1", len(found))
	}
}

func TestDeleteSupplierGuards(t *testing.T) {
	ctx := setupTestDB(t)
	item := mustCreateItem(t, ctx, "Hammer", "100", "130", 0)
	supplier := mustCreateSupplier(t, ctx, "Acme")
	order := mustCreateHammerOrder(t, ctx, supplier, item)

	_, err := models.DeleteSupplier(ctx, supplier.SupplierId)
	assertErrorIs(t, err, utils.ErrOutstandingBalance)

	if _, err := models.AddPayment(ctx, &models.NewPayment{
		PaymentDate: testDate, PoId: order.PoId, PaymentMode: "Cash", Amount: order.TotalAmount,
	}); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	_, err = models.DeleteSupplier(ctx, supplier.SupplierId)
	assertErrorIs(t, err, utils.ErrHasStockOrHistory)

	idle := mustCreateSupplier(t, ctx, "Idle")
	if _, err := models.DeleteSupplier(ctx, idle.SupplierId); err != nil {
		t.Fatalf("DeleteSupplier(idle): %v", err)
	}
	_, err = models.GetSupplier(ctx, idle.SupplierId)
	assertErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestDeleteCustomerGuards(t *testing.T) {
	ctx := setupTestDB(t)
	item := mustCreateItem(t, ctx, "Drill", "100", "150", 0)
	stockUp(t, ctx, 1, item)
	customer := mustCreateCustomer(t, ctx, "BuildCo")
	if _, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		OrderDate:  testDate,
		CustomerId: customer.CustomerId,
		Details:    []models.NewOrderLine{line(item.ItemId, 1, "150", "0")},
	}); err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}

	_, err := models.DeleteCustomer(ctx, customer.CustomerId)
	assertErrorIs(t, err, utils.ErrOutstandingBalance)
	assertDecimal(t, "balance", mustGetCustomer(t, ctx, customer.CustomerId).Balance(), "153.00")
}
