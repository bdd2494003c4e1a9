package chi

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/hirestack/candidex/internal/domain"
	"github.com/hirestack/candidex/internal/usecase/ratelimit"
)

// Limiter is the rate limiting decision contract.
type Limiter interface {
	Allow(ctx context.Context, addr string, tenant domain.Tenant) (*ratelimit.Decision, error)
}

// RateLimitMiddleware enforces the request budget before any handler work.
// Allowed requests carry the usual X-RateLimit-* headers; rejections answer
// 429 with Retry-After.
func RateLimitMiddleware(limiter Limiter, trustedHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			tenant, _ := TenantFromContext(r.Context())
			addr := ClientIP(r, trustedHeader)

			d, err := limiter.Allow(r.Context(), addr, tenant)
			if err != nil {
				var rle *domain.RateLimitError
				if errors.As(err, &rle) {
					setRateLimitHeaders(w, rle.Limit, 0, rle.RetryAfter)
					w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rle.RetryAfter)))
					writeError(w, http.StatusTooManyRequests, codeRateLimited, safeDomainMessage(err))
					return
				}
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}

			setRateLimitHeaders(w, d.Limit, d.Remaining, d.Reset)
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, limit, remaining int64, reset time.Duration) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(retryAfterSeconds(reset)))
}

// retryAfterSeconds rounds the window remainder up to whole seconds so a
// client that sleeps exactly this long lands in the next window.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
