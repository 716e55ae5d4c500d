// Package ratelimit guards authentication endpoints with a fixed-window
// request counter. The default backend is in-process and therefore an
// approximation across multiple server instances; the Redis backend trades
// a network hop for a shared budget.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/craftlane/backend/internal/apperr"
)

// Result describes one rate-limit decision with the response metadata the
// middleware exposes.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Err converts a rejected decision into its taxonomy error, for callers
// enforcing limits outside the HTTP middleware.
func (r Result) Err() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%w: retry after %s", apperr.ErrRateLimited, r.RetryAfter)
}

// Limiter counts requests per key within a window.
type Limiter interface {
	// Allow records one request against key and reports whether it is
	// within the configured budget.
	Allow(ctx context.Context, key string) (Result, error)
}
