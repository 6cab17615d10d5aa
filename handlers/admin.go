package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/simsfs/inventory_backend/models"
	"github.com/simsfs/inventory_backend/models/reports"
)

func nextIdHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := models.NextId(c.Request.Context(), models.EntityClass(c.Param("entity")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entity": c.Param("entity"), "next_id": id})
	}
}

func listReferenceDataHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		values, err := models.ListDimension(c.Request.Context(), models.DimensionKind(c.Param("kind")))
		respond(c, http.StatusOK, values, err)
	}
}

type newReferenceValue struct {
	Name string `json:"name" binding:"required"`
}

func createReferenceDataHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input newReferenceValue
		if !bindJSON(c, &input) {
			return
		}
		value, err := models.CreateDimension(c.Request.Context(), models.DimensionKind(c.Param("kind")), input.Name)
		respond(c, http.StatusCreated, value, err)
	}
}

func recalculateStatusesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := models.RecalculateAllStatuses(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders_updated": count})
	}
}

func renumberDetailsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := models.RenumberDetailIds(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"details_renumbered": count})
	}
}

func reconcileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid, findings, err := models.RunReconciliationChecks(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"correlation_id": cid, "findings": findings})
	}
}

func dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dashboard, err := reports.GetDashboard(c.Request.Context())
		respond(c, http.StatusOK, dashboard, err)
	}
}
