package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/simsfs/inventory_backend/config"
	"github.com/simsfs/inventory_backend/utils"
)

var statusByError = []struct {
	target error
	status int
}{
	{utils.ErrValidation, http.StatusBadRequest},
	{utils.ErrorRecordNotFound, http.StatusNotFound},
	{utils.ErrInvalidReference, http.StatusUnprocessableEntity},
	{utils.ErrInsufficientStock, http.StatusConflict},
	{utils.ErrOverpayment, http.StatusConflict},
	{utils.ErrDuplicateIdentifier, http.StatusConflict},
	{utils.ErrDuplicateIdentifierRace, http.StatusConflict},
	{utils.ErrHasStockOrHistory, http.StatusConflict},
	{utils.ErrOutstandingBalance, http.StatusConflict},
}

func statusFor(err error) int {
	for _, m := range statusByError {
		if errors.Is(err, m.target) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}; unexpected errors are logged and masked.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), "handlers", c.FullPath(), c.Request.Method, nil, err)
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// bindJSON binds the body and answers 400 itself when it cannot.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "invalid request",
			"fields": utils.ProcessValidationErrors(err),
		})
		return false
	}
	return true
}

func respond(c *gin.Context, status int, result any, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, result)
}
