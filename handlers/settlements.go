package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/simsfs/inventory_backend/models"
)

func addPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPayment
		if !bindJSON(c, &input) {
			return
		}
		payment, err := models.AddPayment(c.Request.Context(), &input)
		respond(c, http.StatusCreated, payment, err)
	}
}

func updatePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPayment
		if !bindJSON(c, &input) {
			return
		}
		payment, err := models.UpdatePayment(c.Request.Context(), c.Param("id"), &input)
		respond(c, http.StatusOK, payment, err)
	}
}

func deletePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		payment, err := models.DeletePayment(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, payment, err)
	}
}

func getPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		payment, err := models.GetPayment(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, payment, err)
	}
}

func listPaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		payments, err := models.ListPayments(c.Request.Context(), c.Query("po_id"))
		respond(c, http.StatusOK, payments, err)
	}
}

func addReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewReceipt
		if !bindJSON(c, &input) {
			return
		}
		receipt, err := models.AddReceipt(c.Request.Context(), &input)
		respond(c, http.StatusCreated, receipt, err)
	}
}

func updateReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewReceipt
		if !bindJSON(c, &input) {
			return
		}
		receipt, err := models.UpdateReceipt(c.Request.Context(), c.Param("id"), &input)
		respond(c, http.StatusOK, receipt, err)
	}
}

func deleteReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		receipt, err := models.DeleteReceipt(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, receipt, err)
	}
}

func getReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		receipt, err := models.GetReceipt(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, receipt, err)
	}
}

func listReceiptsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		receipts, err := models.ListReceipts(c.Request.Context(), c.Query("so_id"))
		respond(c, http.StatusOK, receipts, err)
	}
}
