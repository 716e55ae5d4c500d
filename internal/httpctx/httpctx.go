// Package httpctx holds the gin context keys shared across middleware and
// handlers, and typed accessors for them. It sits below every feature
// package so none of them need to import each other for request state.
package httpctx

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/craftlane/backend/internal/models"
)

const (
	// ContextTenant is the gin context key for the resolved tenant.
	ContextTenant = "tenant"
	// ContextUser is the gin context key for the authenticated user.
	ContextUser = "user"
	// ContextClaims is the gin context key for the verified token claims.
	ContextClaims = "claims"
)

// Tenant returns the tenant resolved for the request, or nil.
func Tenant(c *gin.Context) *models.Tenant {
	v, ok := c.Get(ContextTenant)
	if !ok {
		return nil
	}
	t, _ := v.(*models.Tenant)
	return t
}

// User returns the authenticated user for the request, or nil.
func User(c *gin.Context) *models.User {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// BearerToken extracts the raw bearer token from the Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
