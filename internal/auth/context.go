package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/craftlane/backend/internal/httpctx"
)

// CurrentClaims returns the verified token claims for the request, or nil.
func CurrentClaims(c *gin.Context) *Claims {
	v, ok := c.Get(httpctx.ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
