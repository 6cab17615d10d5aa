package models

import (
	"github.com/simsfs/inventory_backend/config"
)

func MigrateTable() error {
	db := config.GetDB()

	tables := append(dimensionModels(),
		&StockItem{},
		&Supplier{}, &Customer{},
		&PurchaseOrder{}, &PurchaseDetail{}, &Payment{},
		&SalesOrder{}, &SalesDetail{}, &Receipt{},
		&ReconciliationReport{},
	)
	return db.AutoMigrate(tables...)
}
