package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "stockbook/internal/core/context"
)

const HeaderOperator = "X-Operator"

// OperatorContext propagates the acting operator's name into the request
// context so the domain layer can stamp created_by on moves. Single-user
// deployments may omit the header entirely.
func OperatorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.GetHeader(HeaderOperator)
		if name == "" {
			c.Next()
			return
		}

		ctx := appctx.WithOperator(c.Request.Context(), &appctx.Operator{Name: name})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
