// Package apperr defines the error taxonomy shared by the security core.
// Handlers map these kinds onto HTTP status codes; everything else wraps and
// propagates them unchanged.
package apperr

import "errors"

var (
	// ErrUnauthenticated covers missing, invalid or expired credentials,
	// absent sessions and inactive users or tenants.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden covers role, permission and scope check failures.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound covers resources absent after tenant scoping. A resource
	// that exists in another tenant reports the same error.
	ErrNotFound = errors.New("not found")
	// ErrConflict covers duplicate emails, duplicate OAuth links and reused
	// magic links.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited covers rejected requests from the rate limiter.
	ErrRateLimited = errors.New("rate limited")
)

// IsUnauthenticated reports whether err is or wraps ErrUnauthenticated.
func IsUnauthenticated(err error) bool { return errors.Is(err, ErrUnauthenticated) }

// IsForbidden reports whether err is or wraps ErrForbidden.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is or wraps ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsRateLimited reports whether err is or wraps ErrRateLimited.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }
