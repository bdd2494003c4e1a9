package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hirestack/candidex/internal/domain"
	"github.com/hirestack/candidex/internal/usecase/ratelimit"
)

type stubLimiter struct {
	decision *ratelimit.Decision
	err      error

	lastAddr   string
	lastTenant domain.Tenant
}

func (s *stubLimiter) Allow(_ context.Context, addr string, tenant domain.Tenant) (*ratelimit.Decision, error) {
	s.lastAddr = addr
	s.lastTenant = tenant
	return s.decision, s.err
}

func TestRateLimitMiddleware_Allowed(t *testing.T) {
	limiter := &stubLimiter{decision: &ratelimit.Decision{
		Tier: ratelimit.TierTenant, Limit: 60, Remaining: 41, Reset: 30 * time.Second,
	}}
	handler := RateLimitMiddleware(limiter, "X-Real-IP")(okHandler(nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/search", nil)
	req.Header.Set("X-Real-IP", "203.0.113.7")
	req = req.WithContext(ContextWithTenant(req.Context(), domain.Tenant{ID: "acme", Plan: domain.PlanFree}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Errorf("X-RateLimit-Limit = %q, want 60", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "41" {
		t.Errorf("X-RateLimit-Remaining = %q, want 41", got)
	}
	if got := rec.Header().Get("X-RateLimit-Reset"); got != "30" {
		t.Errorf("X-RateLimit-Reset = %q, want 30", got)
	}
	if limiter.lastAddr != "203.0.113.7" {
		t.Errorf("limiter saw addr %q, want 203.0.113.7", limiter.lastAddr)
	}
	if limiter.lastTenant.ID != "acme" {
		t.Errorf("limiter saw tenant %q, want acme", limiter.lastTenant.ID)
	}
}

func TestRateLimitMiddleware_Rejected(t *testing.T) {
	limiter := &stubLimiter{
		decision: &ratelimit.Decision{Tier: ratelimit.TierTenant, Limit: 60, Remaining: 0, Reset: 21 * time.Second},
		err:      &domain.RateLimitError{Tier: ratelimit.TierTenant, Limit: 60, RetryAfter: 21 * time.Second},
	}
	handler := RateLimitMiddleware(limiter, "")(okHandler(nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/search", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "21" {
		t.Errorf("Retry-After = %q, want 21", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Errorf("X-RateLimit-Limit = %q, want 60", got)
	}
}

func TestRateLimitMiddleware_ExemptPaths(t *testing.T) {
	limiter := &stubLimiter{err: &domain.RateLimitError{Tier: ratelimit.TierAddress, Limit: 1, RetryAfter: time.Minute}}
	handler := RateLimitMiddleware(limiter, "")(okHandler(nil))

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 without rate limiting", path, rec.Code)
		}
	}
}

func TestRetryAfterSeconds_RoundsUp(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 1},
		{-time.Second, 1},
		{300 * time.Millisecond, 1},
		{1500 * time.Millisecond, 2},
		{60 * time.Second, 60},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.d); got != tt.want {
			t.Errorf("retryAfterSeconds(%s) = %d, want %d", tt.d, got, tt.want)
		}
	}
}
