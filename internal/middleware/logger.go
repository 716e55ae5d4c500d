package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/craftlane/backend/internal/httpctx"
)

// Logger returns a zap-based request logging middleware. The tenant field
// is filled when resolution ran before this middleware in the chain.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		clientIP := c.ClientIP()
		method := c.Request.Method

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("client_ip", clientIP),
		}
		if t := httpctx.Tenant(c); t != nil {
			fields = append(fields, zap.String("tenant", t.Slug))
		}
		logger.Info("request", fields...)
	}
}
