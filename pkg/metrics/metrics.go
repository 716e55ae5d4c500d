// Package metrics exposes Prometheus counters for the security core and the
// HTTP plane.
package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LoginCounter counts login attempts by pathway and outcome.
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_total",
			Help: "Total number of login attempts by pathway and outcome",
		},
		[]string{"pathway", "outcome"},
	)

	// MagicLinkCounter counts magic link issuance and consumption.
	MagicLinkCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_magic_link_total",
			Help: "Total number of magic link operations",
		},
		[]string{"operation"},
	)

	// OAuthCallbackCounter counts OAuth callbacks by provider and outcome.
	OAuthCallbackCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_oauth_callback_total",
			Help: "Total number of OAuth callbacks by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// RateLimitedCounter counts requests rejected by the rate limiter.
	RateLimitedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// TenantCacheCounter counts tenant cache hits and misses.
	TenantCacheCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_cache_total",
			Help: "Total number of tenant cache lookups by result",
		},
		[]string{"result"},
	)

	// HTTPRequestCounter counts HTTP requests by route, method and status.
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(
		LoginCounter,
		MagicLinkCounter,
		OAuthCallbackCounter,
		RateLimitedCounter,
		TenantCacheCounter,
		HTTPRequestCounter,
	)
}

// Middleware counts requests per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestCounter.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
