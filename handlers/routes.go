package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/simsfs/inventory_backend/config"
	"github.com/simsfs/inventory_backend/models/reports"
)

// invalidateDashboard drops the cached dashboard after every successful write.
func invalidateDashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method == http.MethodGet || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		if err := reports.InvalidateDashboard(); err != nil {
			config.LogWarning(config.GetLogger(), "handlers", "invalidateDashboard", "cache invalidation failed: "+err.Error(), c.FullPath())
		}
	}
}

// RegisterRoutes mounts the ledger API under /api.
func RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api", invalidateDashboard())

	items := api.Group("/stock-items")
	items.POST("", createStockItemHandler())
	items.GET("", listStockItemsHandler())
	items.GET("/reorder", listReorderItemsHandler())
	items.GET("/export", exportStockItemsHandler())
	items.GET("/:id", getStockItemHandler())
	items.PUT("/:id", updateStockItemHandler())
	items.DELETE("/:id", deleteStockItemHandler())

	suppliers := api.Group("/suppliers")
	suppliers.POST("", createSupplierHandler())
	suppliers.GET("", listSuppliersHandler())
	suppliers.GET("/:id", getSupplierHandler())
	suppliers.PUT("/:id", updateSupplierHandler())
	suppliers.DELETE("/:id", deleteSupplierHandler())

	customers := api.Group("/customers")
	customers.POST("", createCustomerHandler())
	customers.GET("", listCustomersHandler())
	customers.GET("/:id", getCustomerHandler())
	customers.PUT("/:id", updateCustomerHandler())
	customers.DELETE("/:id", deleteCustomerHandler())

	purchaseOrders := api.Group("/purchase-orders")
	purchaseOrders.POST("", createPurchaseOrderHandler())
	purchaseOrders.GET("", listPurchaseOrdersHandler())
	purchaseOrders.GET("/:id", getPurchaseOrderHandler())
	purchaseOrders.PUT("/:id", updatePurchaseOrderHandler())
	purchaseOrders.DELETE("/:id", deletePurchaseOrderHandler())
	api.DELETE("/purchase-details/:id", deletePurchaseDetailHandler())

	salesOrders := api.Group("/sales-orders")
	salesOrders.POST("", createSalesOrderHandler())
	salesOrders.GET("", listSalesOrdersHandler())
	salesOrders.GET("/:id", getSalesOrderHandler())
	salesOrders.PUT("/:id", updateSalesOrderHandler())
	salesOrders.DELETE("/:id", deleteSalesOrderHandler())
	api.DELETE("/sales-details/:id", deleteSalesDetailHandler())

	payments := api.Group("/payments")
	payments.POST("", addPaymentHandler())
	payments.GET("", listPaymentsHandler())
	payments.GET("/:id", getPaymentHandler())
	payments.PUT("/:id", updatePaymentHandler())
	payments.DELETE("/:id", deletePaymentHandler())

	receipts := api.Group("/receipts")
	receipts.POST("", addReceiptHandler())
	receipts.GET("", listReceiptsHandler())
	receipts.GET("/:id", getReceiptHandler())
	receipts.PUT("/:id", updateReceiptHandler())
	receipts.DELETE("/:id", deleteReceiptHandler())

	api.GET("/next-id/:entity", nextIdHandler())
	api.GET("/reference/:kind", listReferenceDataHandler())
	api.POST("/reference/:kind", createReferenceDataHandler())
	api.GET("/dashboard", dashboardHandler())

	admin := api.Group("/admin")
	admin.POST("/recalculate-statuses", recalculateStatusesHandler())
	admin.POST("/renumber-details", renumberDetailsHandler())
	admin.POST("/reconcile", reconcileHandler())
}
