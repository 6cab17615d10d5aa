package models_test

import (
	"testing"

	"github.com/simsfs/inventory_backend/config"
	"github.com/simsfs/inventory_backend/models"
	"github.com/simsfs/inventory_backend/utils"
)

func TestReconciliationChecks(t *testing.T) {
	ctx := setupTestDB(t)
	item := mustCreateItem(t, ctx, "Hammer", "100", "130", 0)
	supplier := mustCreateSupplier(t, ctx, "Acme")
	order := mustCreateHammerOrder(t, ctx, supplier, item)
	if _, err := models.AddPayment(ctx, &models.NewPayment{
		PaymentDate: testDate, PoId: order.PoId, PaymentMode: "Cash", Amount: dec("100"),
	}); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}

	cid, findings, err := models.RunReconciliationChecks(ctx)
	if err != nil {
		t.Fatalf("RunReconciliationChecks: %v", err)
	}
	if cid == "" {
		t.Fatalf("empty correlation id")
	}
	if len(findings) != 0 {
		t.Fatalf("clean ledger reported %d findings: %+v", len(findings), findings[0])
	}

	db := config.GetDB()
	if err := db.Model(&models.Supplier{}).Where("supplier_id = ?", supplier.SupplierId).
		Update("total_purchases", "999").Error; err != nil {
		t.Fatalf("tamper supplier: %v", err)
	}
	if err := db.Model(&models.StockItem{}).Where("item_id = ?", item.ItemId).
		Update("quantity_purchased", 12).Error; err != nil {
		t.Fatalf("tamper item: %v", err)
	}

	ctx = utils.SetCorrelationIdInContext(ctx, "nightly-run")
	cid, findings, err = models.RunReconciliationChecks(ctx)
	if err != nil {
		t.Fatalf("RunReconciliationChecks: %v", err)
	}
	if cid != "nightly-run" {
		t.Fatalf("correlation id = %s", cid)
	}
	got := map[string]string{}
	for _, f := range findings {
		got[f.CheckType] = f.EntityId
	}
	if len(findings) != 2 || got[models.CheckPartyOwed] != supplier.SupplierId || got[models.CheckStockPurchased] != item.ItemId {
		t.Fatalf("findings = %v", got)
	}

	var stored int64
	if err := db.Model(&models.ReconciliationReport{}).Where("correlation_id = ?", cid).Count(&stored).Error; err != nil {
		t.Fatalf("count reports: %v", err)
	}
	if stored != 2 {
		t.Fatalf("stored findings = %d, want 2", stored)
	}
	// checks only read the ledger
	assertDecimal(t, "total_purchases", mustGetSupplier(t, ctx, supplier.SupplierId).TotalPurchases, "999")
}
