package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/simsfs/inventory_backend/models"
)

/* suppliers */

func createSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewParty
		if !bindJSON(c, &input) {
			return
		}
		supplier, err := models.CreateSupplier(c.Request.Context(), &input)
		respond(c, http.StatusCreated, supplier, err)
	}
}

func updateSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewParty
		if !bindJSON(c, &input) {
			return
		}
		supplier, err := models.UpdateSupplier(c.Request.Context(), c.Param("id"), &input)
		respond(c, http.StatusOK, supplier, err)
	}
}

func deleteSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		supplier, err := models.DeleteSupplier(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, supplier, err)
	}
}

func getSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		supplier, err := models.GetSupplier(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, supplier, err)
	}
}

func listSuppliersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		suppliers, err := models.ListSuppliers(c.Request.Context(), c.Query("search"))
		respond(c, http.StatusOK, suppliers, err)
	}
}

/* customers */

func createCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewParty
		if !bindJSON(c, &input) {
			return
		}
		customer, err := models.CreateCustomer(c.Request.Context(), &input)
		respond(c, http.StatusCreated, customer, err)
	}
}

func updateCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewParty
		if !bindJSON(c, &input) {
			return
		}
		customer, err := models.UpdateCustomer(c.Request.Context(), c.Param("id"), &input)
		respond(c, http.StatusOK, customer, err)
	}
}

func deleteCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, err := models.DeleteCustomer(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, customer, err)
	}
}

func getCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, err := models.GetCustomer(c.Request.Context(), c.Param("id"))
		respond(c, http.StatusOK, customer, err)
	}
}

func listCustomersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		customers, err := models.ListCustomers(c.Request.Context(), c.Query("search"))
		respond(c, http.StatusOK, customers, err)
	}
}
