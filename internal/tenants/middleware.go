package tenants

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/craftlane/backend/internal/httpctx"
)

// HeaderTenantID is the explicit tenant override header.
const HeaderTenantID = "X-Tenant-ID"

// Middleware resolves the request's tenant from the explicit header or the
// Host header. Unresolved is not a failure here; handlers that require a
// tenant reject on their own.
func Middleware(resolver *Resolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, err := resolver.Resolve(c.Request.Context(), c.Request.Host, c.GetHeader(HeaderTenantID))
		if err != nil {
			logger.Error("tenant resolution failed",
				zap.String("host", c.Request.Host), zap.Error(err))
		}
		if tenant != nil {
			c.Set(httpctx.ContextTenant, tenant)
		}
		c.Next()
	}
}

