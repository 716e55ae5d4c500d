package ratelimit

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/craftlane/backend/pkg/metrics"
	"github.com/craftlane/backend/pkg/response"
)

// Middleware guards a route group with the limiter, keying on
// "<keyPrefix>:<client ip>". Remaining quota and reset time are exposed as
// headers on every response; rejections carry Retry-After.
func Middleware(limiter Limiter, keyPrefix string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyPrefix + ":" + c.ClientIP()

		res, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// A broken limiter backend must not take authentication down
			// with it; the request proceeds unthrottled.
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			metrics.RateLimitedCounter.Inc()
			response.TooManyRequests(c, res.RetryAfter)
			c.Abort()
			return
		}
		c.Next()
	}
}
