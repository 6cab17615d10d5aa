package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/simsfs/inventory_backend/models"
)

/* purchase orders */

func createPurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPurchaseOrder
		if !bindJSON(c, &input) {
			return
		}
		order, err := models.CreatePurchaseOrder(c.Request.Context(), &input)
		respond(c, http.StatusCreated, order, err)
	}
}

func updatePurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPurchaseOrder
		if !bindJSON(c, &input) {
			return
		}
		order, err := models.UpdatePurchaseOrder(c.Request.Context(), c.Param("id"), &input)
		respond(c, http.StatusOK, order, err)
	}
}

func deletePurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := models.DeletePurchaseOrder(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, order, err)
	}
}

func deletePurchaseDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := models.DeletePurchaseDetail(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, order, err)
	}
}

func getPurchaseOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := models.GetPurchaseOrder(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, order, err)
	}
}

func listPurchaseOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.PurchaseOrderFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
			return
		}
		orders, err := models.ListPurchaseOrders(c.Request.Context(), filter)
		respond(c, http.StatusOK, orders, err)
	}
}

/* sales orders */

func createSalesOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSalesOrder
		if !bindJSON(c, &input) {
			return
		}
		order, err := models.CreateSalesOrder(c.Request.Context(), &input)
		respond(c, http.StatusCreated, order, err)
	}
}

func updateSalesOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSalesOrder
		if !bindJSON(c, &input) {
			return
		}
		order, err := models.UpdateSalesOrder(c.Request.Context(), c.Param("id"), &input)
		respond(c, http.StatusOK, order, err)
	}
}

func deleteSalesOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := models.DeleteSalesOrder(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, order, err)
	}
}

func deleteSalesDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := models.DeleteSalesDetail(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, order, err)
	}
}

func getSalesOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := models.GetSalesOrder(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, order, err)
	}
}

func listSalesOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.SalesOrderFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
			return
		}
		orders, err := models.ListSalesOrders(c.Request.Context(), filter)
		respond(c, http.StatusOK, orders, err)
	}
}
