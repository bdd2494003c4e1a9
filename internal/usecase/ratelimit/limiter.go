// Package ratelimit enforces per-address and per-tenant request budgets in
// fixed windows backed by an atomic counter store.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hirestack/candidex/internal/domain"
	"github.com/hirestack/candidex/internal/metrics"
)

const (
	// TierAddress is the coarse per-source-address tier checked first.
	TierAddress = "address"
	// TierTenant is the plan-dependent per-tenant tier.
	TierTenant = "tenant"

	addrKeyPrefix   = domain.KeyPrefix + "rl:addr:"
	tenantKeyPrefix = domain.KeyPrefix + "rl:tenant:"
)

// counter is the consumer interface for the windowed counter store (ISP).
type counter interface {
	CheckAndIncr(ctx context.Context, key string, limit int64, window time.Duration) (int64, time.Duration, error)
}

// Config holds limiter knobs.
type Config struct {
	Window       time.Duration    // counting window
	AddressLimit int64            // generous per-address ceiling
	PlanLimits   map[string]int64 // per-plan tenant limits
	DefaultLimit int64            // tenant limit for unlisted plans

	AbuseThreshold int           // violations within AbuseWindow before flagging
	AbuseWindow    time.Duration // trailing window for violation counting
}

// ApplyDefaults fills zero fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.AddressLimit <= 0 {
		c.AddressLimit = 600
	}
	if c.PlanLimits == nil {
		c.PlanLimits = map[string]int64{
			domain.PlanFree:       60,
			domain.PlanPro:        300,
			domain.PlanEnterprise: 1200,
		}
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 60
	}
	if c.AbuseThreshold <= 0 {
		c.AbuseThreshold = 10
	}
	if c.AbuseWindow <= 0 {
		c.AbuseWindow = 10 * time.Minute
	}
}

// Decision carries what the transport needs for rate-limit headers.
type Decision struct {
	Tier      string
	Limit     int64
	Remaining int64
	Reset     time.Duration
}

// Limiter checks the address tier, then the tenant tier. When the primary
// counter store is unreachable it degrades to the per-instance fallback
// counter instead of failing requests; that mode enforces limits per
// instance only.
type Limiter struct {
	primary  counter
	fallback counter
	logger   *zap.Logger
	cfg      Config
	abuse    *abuseTracker
}

// New creates a Limiter. fallback may be nil when no degraded mode is wanted.
func New(primary, fallback counter, cfg Config, log *zap.Logger) *Limiter {
	cfg.ApplyDefaults()
	return &Limiter{
		primary:  primary,
		fallback: fallback,
		logger:   log,
		cfg:      cfg,
		abuse:    newAbuseTracker(cfg.AbuseThreshold, cfg.AbuseWindow),
	}
}

// Allow runs both tiers for one request. The returned Decision is always
// populated; on rejection the error wraps domain.ErrRateLimited and the
// Decision reflects the rejecting tier.
func (l *Limiter) Allow(ctx context.Context, addr string, tenant domain.Tenant) (*Decision, error) {
	d, err := l.check(ctx, TierAddress, addrKeyPrefix+addr, l.cfg.AddressLimit)
	if err != nil || d.Remaining < 0 {
		return l.decide(d, err, addr)
	}
	d, err = l.check(ctx, TierTenant, tenantKeyPrefix+tenant.ID, l.tenantLimit(tenant.Plan))
	return l.decide(d, err, tenant.ID)
}

func (l *Limiter) tenantLimit(plan string) int64 {
	if limit, ok := l.cfg.PlanLimits[plan]; ok {
		return limit
	}
	return l.cfg.DefaultLimit
}

// check runs one tier. Remaining < 0 marks a rejection for the caller.
func (l *Limiter) check(ctx context.Context, tier, key string, limit int64) (*Decision, error) {
	count, ttl, err := l.primary.CheckAndIncr(ctx, key, limit, l.cfg.Window)
	if err != nil {
		if l.fallback == nil {
			return nil, err
		}
		l.logger.Warn("rate limit store unreachable, using in-process counters",
			zap.String("tier", tier), zap.Error(err))
		count, ttl, err = l.fallback.CheckAndIncr(ctx, key, limit, l.cfg.Window)
		if err != nil {
			return nil, err
		}
	}
	return &Decision{
		Tier:      tier,
		Limit:     limit,
		Remaining: limit - count,
		Reset:     ttl,
	}, nil
}

// decide converts a tier outcome into the caller-facing result. Counter
// store failures with no fallback fail open: limiting is protection, not a
// feature worth an outage.
func (l *Limiter) decide(d *Decision, err error, identifier string) (*Decision, error) {
	if err != nil {
		l.logger.Error("rate limit check failed open", zap.Error(err))
		return &Decision{Tier: TierAddress, Limit: l.cfg.AddressLimit, Remaining: l.cfg.AddressLimit, Reset: l.cfg.Window}, nil
	}
	if d.Remaining >= 0 {
		return d, nil
	}

	d.Remaining = 0
	metrics.RateLimitRejections.WithLabelValues(d.Tier).Inc()
	if l.abuse.record(identifier) {
		metrics.AbuseFlagsTotal.Inc()
		l.logger.Warn("identifier flagged for repeated rate limit violations",
			zap.String("tier", d.Tier), zap.String("identifier", identifier))
	}
	return d, &domain.RateLimitError{Tier: d.Tier, Limit: d.Limit, RetryAfter: d.Reset}
}

// abuseTracker counts violations per identifier in a trailing window and
// flags each identifier at most once per window. Flagging never changes the
// limiting decision.
type abuseTracker struct {
	mu         sync.Mutex
	threshold  int
	window     time.Duration
	violations map[string][]time.Time
	flaggedAt  map[string]time.Time

	now func() time.Time
}

func newAbuseTracker(threshold int, window time.Duration) *abuseTracker {
	return &abuseTracker{
		threshold:  threshold,
		window:     window,
		violations: map[string][]time.Time{},
		flaggedAt:  map[string]time.Time{},
		now:        time.Now,
	}
}

// record registers one violation and reports whether the identifier just
// crossed the flagging threshold.
func (t *abuseTracker) record(identifier string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	cutoff := now.Add(-t.window)

	recent := t.violations[identifier][:0]
	for _, v := range t.violations[identifier] {
		if v.After(cutoff) {
			recent = append(recent, v)
		}
	}
	recent = append(recent, now)
	t.violations[identifier] = recent

	if len(recent) < t.threshold {
		return false
	}
	if flagged, ok := t.flaggedAt[identifier]; ok && flagged.After(cutoff) {
		return false
	}
	t.flaggedAt[identifier] = now
	return true
}
