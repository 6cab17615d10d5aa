package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simsfs/inventory_backend/utils"
)

const (
	CorrelationIdHeader = "x-correlation-id"
	UsernameHeader      = "x-username"
)

// CorrelationIdMiddleware generates a correlation id once per request unless the caller sent one.
func CorrelationIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := strings.TrimSpace(c.GetHeader(CorrelationIdHeader))
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(CorrelationIdHeader, cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// SessionMiddleware carries the acting username into the request context.
// Authentication happens upstream; the name only labels logs and traces.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := strings.TrimSpace(c.GetHeader(UsernameHeader))
		if username == "" {
			c.Next()
			return
		}
		c.Request = c.Request.WithContext(utils.SetUsernameInContext(c.Request.Context(), username))
		c.Next()
	}
}
