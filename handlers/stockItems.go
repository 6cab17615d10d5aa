package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/simsfs/inventory_backend/models"
	"github.com/simsfs/inventory_backend/models/reports"
)

func createStockItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewStockItem
		if !bindJSON(c, &input) {
			return
		}
		item, err := models.CreateStockItem(c.Request.Context(), &input)
		respond(c, http.StatusCreated, item, err)
	}
}

func updateStockItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewStockItem
		if !bindJSON(c, &input) {
			return
		}
		item, err := models.UpdateStockItem(c.Request.Context(), c.Param("id"), &input)
		respond(c, http.StatusOK, item, err)
	}
}

func deleteStockItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := models.DeleteStockItem(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, item, err)
	}
}

func getStockItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := models.GetStockItem(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, item, err)
	}
}

func listStockItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.StockItemFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
			return
		}
		items, err := models.ListStockItems(c.Request.Context(), filter)
		respond(c, http.StatusOK, items, err)
	}
}

func listReorderItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := models.ListReorderItems(c.Request.Context())
		respond(c, http.StatusOK, items, err)
	}
}

func exportStockItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.StockItemFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=stock_items.xlsx")
		if err := reports.ExportStockItemsExcel(c.Request.Context(), c.Writer, filter); err != nil {
			respondError(c, err)
		}
	}
}
