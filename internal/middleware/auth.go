package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/craftlane/backend/internal/auth"
	"github.com/craftlane/backend/internal/httpctx"
	"github.com/craftlane/backend/internal/permissions"
	"github.com/craftlane/backend/internal/rls"
	"github.com/craftlane/backend/pkg/response"
)

// Auth returns a middleware that authenticates the bearer token, pins the
// request to the resolved tenant, and installs the enforcement scope on the
// request context. A token minted for one tenant never works against
// another tenant's host.
func Auth(sessions *auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := httpctx.BearerToken(c)
		if !ok {
			response.Unauthorized(c, "missing or malformed authorization header")
			c.Abort()
			return
		}

		u, claims, err := sessions.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		if t := httpctx.Tenant(c); t != nil && t.ID != claims.TenantID {
			response.Unauthorized(c, "token does not belong to this tenant")
			c.Abort()
			return
		}

		c.Set(httpctx.ContextUser, u)
		c.Set(httpctx.ContextClaims, claims)
		c.Request = c.Request.WithContext(rls.WithScope(c.Request.Context(), rls.Scope{
			TenantID: u.TenantID,
			UserID:   u.ID,
			Role:     u.Role,
		}))
		c.Next()
	}
}

// RequirePermission returns a middleware that rejects callers whose
// effective permission set lacks p. It must run after Auth.
func RequirePermission(p permissions.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := httpctx.User(c)
		if u == nil {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if !permissions.Has(u.Role, u.Permissions, p) {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
