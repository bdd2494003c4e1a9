package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidQuery signals a malformed search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidFilter signals a malformed filter payload.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidLimit signals a zero or negative result limit.
	ErrInvalidLimit = errors.New("limit must be positive")
	// ErrInvalidThreshold signals a similarity threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("similarity threshold must be within [0, 1]")
	// ErrTenantUnknown signals a request without a resolvable tenant.
	ErrTenantUnknown = errors.New("unknown tenant")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// KeyPrefix namespaces all Redis keys owned by this service.
const KeyPrefix = "cdx:"

// RateLimitError wraps ErrRateLimited with the limiting decision details
// needed for the rejection contract (429 headers).
type RateLimitError struct {
	Tier       string
	Limit      int64
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %s tier limit %d, retry in %s",
		ErrRateLimited.Error(), e.Tier, e.Limit, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
