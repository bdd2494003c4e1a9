// Package resultcache wraps the whole search pipeline behind a
// stampede-safe, stale-while-revalidate cache keyed by the canonicalized
// query and filter set.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hirestack/candidex/internal/db"
	"github.com/hirestack/candidex/internal/domain"
	"github.com/hirestack/candidex/internal/metrics"
	"github.com/hirestack/candidex/internal/usecase/search"
)

const (
	keyPrefix  = domain.KeyPrefix + "results:"
	lockPrefix = domain.KeyPrefix + "results:lock:"
)

// Searcher is the inner pipeline contract (ISP).
type Searcher interface {
	Search(ctx context.Context, req *search.Request) (*search.Response, error)
}

// store is the consumer interface for cache storage (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// Config holds cache timing knobs.
type Config struct {
	FreshTTL  time.Duration // served as-is
	StaleTTL  time.Duration // additional window served while revalidating
	LockTTL   time.Duration // stampede lock expiry; liveness over exclusivity
	RetryWait time.Duration // non-holder double-check interval
}

// ApplyDefaults fills zero fields with default values.
func (c *Config) ApplyDefaults() {
	if c.FreshTTL <= 0 {
		c.FreshTTL = time.Minute
	}
	if c.StaleTTL <= 0 {
		c.StaleTTL = 5 * time.Minute
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 10 * time.Second
	}
	if c.RetryWait <= 0 {
		c.RetryWait = 150 * time.Millisecond
	}
}

// envelope is the stored cache entry. Expiry is enforced by the store TTL;
// StaleAt drives the serve-then-revalidate transition.
type envelope struct {
	Payload   *search.Response `json:"payload"`
	CreatedAt time.Time        `json:"createdAt"`
	StaleAt   time.Time        `json:"staleAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// Cache is the stale-while-revalidate decorator around the search service.
type Cache struct {
	inner  Searcher
	store  store
	pool   *ants.Pool
	logger *zap.Logger
	cfg    Config

	// refreshCtx scopes background refreshes to the process, not to the
	// request that happened to observe staleness.
	refreshCtx context.Context

	now func() time.Time
}

// New creates the caching decorator. refreshCtx should be cancelled only at
// process shutdown.
func New(
	inner Searcher,
	s store,
	pool *ants.Pool,
	refreshCtx context.Context,
	cfg Config,
	log *zap.Logger,
) *Cache {
	cfg.ApplyDefaults()
	return &Cache{
		inner:      inner,
		store:      s,
		pool:       pool,
		logger:     log,
		cfg:        cfg,
		refreshCtx: refreshCtx,
		now:        time.Now,
	}
}

// Search serves from cache when possible: fresh entries return immediately,
// stale entries return immediately with a detached refresh, misses go
// through the stampede lock. A broken cache backend is a bypass, never an
// error.
func (c *Cache) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	key := cacheKey(req)

	env, err := c.get(ctx, key)
	switch {
	case err == nil:
		if c.now().Before(env.StaleAt) {
			c.incCache("hit")
			return env.Payload, nil
		}
		c.incCache("stale")
		c.scheduleRefresh(key, req)
		return env.Payload, nil
	case errors.Is(err, db.ErrKeyNotFound):
		// fall through to the miss path
	default:
		c.incCache("bypass")
		c.logger.Warn("result cache unreachable, querying directly", zap.Error(err))
		return c.inner.Search(ctx, req)
	}

	c.incCache("miss")
	return c.fillOnMiss(ctx, key, req)
}

// fillOnMiss lets one caller per key perform the origin lookup. Losers wait
// two short intervals re-checking the cache, then fall through to their own
// lookup; under N concurrent misses the origin sees a small bounded number
// of lookups, independent of N.
func (c *Cache) fillOnMiss(ctx context.Context, key string, req *search.Request) (*search.Response, error) {
	token := uuid.NewString()
	acquired, err := c.store.SetNX(ctx, lockPrefix+key, []byte(token), c.cfg.LockTTL)
	if err != nil {
		c.logger.Warn("cache lock unreachable, querying directly", zap.Error(err))
		return c.inner.Search(ctx, req)
	}

	if acquired {
		resp, err := c.inner.Search(ctx, req)
		if err != nil {
			c.unlock(ctx, key)
			return nil, err
		}
		c.put(ctx, key, resp)
		c.unlock(ctx, key)
		return resp, nil
	}

	for i := 0; i < 2; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.RetryWait):
		}
		if env, err := c.get(ctx, key); err == nil {
			return env.Payload, nil
		}
	}

	// Bounded double-check exhausted: do our own lookup rather than spin.
	return c.inner.Search(ctx, req)
}

// scheduleRefresh hands a revalidation task to the worker pool. The lock
// keeps concurrent stale observers from piling refreshes on one key; a
// pool rejection just leaves the entry for the next observer.
func (c *Cache) scheduleRefresh(key string, req *search.Request) {
	acquired, err := c.store.SetNX(context.WithoutCancel(c.refreshCtx), lockPrefix+key, []byte(uuid.NewString()), c.cfg.LockTTL)
	if err != nil || !acquired {
		return
	}

	submitErr := c.pool.Submit(func() {
		ctx := c.refreshCtx
		defer c.unlock(ctx, key)

		resp, err := c.inner.Search(ctx, req)
		if err != nil {
			// Failed refresh: drop the entry so the next caller takes the
			// miss path. Never surfaced to the request that saw stale.
			c.logger.Warn("background refresh failed, evicting entry",
				zap.String("key", key), zap.Error(err))
			if delErr := c.store.Del(ctx, key); delErr != nil {
				c.logger.Warn("evict failed", zap.String("key", key), zap.Error(delErr))
			}
			return
		}
		c.put(ctx, key, resp)
	})
	if submitErr != nil {
		c.logger.Warn("refresh pool rejected task", zap.String("key", key), zap.Error(submitErr))
		c.unlock(c.refreshCtx, key)
	}
}

func (c *Cache) get(ctx context.Context, key string) (*envelope, error) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	if env.Payload == nil {
		return nil, fmt.Errorf("decode cache entry: empty payload")
	}
	return &env, nil
}

func (c *Cache) put(ctx context.Context, key string, resp *search.Response) {
	now := c.now()
	env := envelope{
		Payload:   resp,
		CreatedAt: now,
		StaleAt:   now.Add(c.cfg.FreshTTL),
		ExpiresAt: now.Add(c.cfg.FreshTTL + c.cfg.StaleTTL),
	}
	data, err := json.Marshal(env)
	if err != nil {
		c.logger.Warn("encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.cfg.FreshTTL+c.cfg.StaleTTL); err != nil {
		c.logger.Warn("store cache entry", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) unlock(ctx context.Context, key string) {
	if err := c.store.Del(ctx, lockPrefix+key); err != nil {
		c.logger.Warn("release cache lock", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) incCache(result string) {
	metrics.ResultCacheTotal.WithLabelValues(result).Inc()
}

// cacheKey derives a stable key from the canonical query and filter set.
// Empty and absent filter fields canonicalize identically, so {skills: null}
// and a missing skills key produce the same key.
func cacheKey(req *search.Request) string {
	parts := []string{
		"q=" + strings.ToLower(strings.TrimSpace(req.Query)),
		"limit=" + strconv.Itoa(req.Limit),
	}
	if s := canonicalList(req.Filters.Skills); s != "" {
		parts = append(parts, "skills="+s)
	}
	if s := canonicalList(req.Filters.Companies); s != "" {
		parts = append(parts, "companies="+s)
	}
	if req.Filters.MinExperience != nil {
		parts = append(parts, "minexp="+strconv.FormatFloat(*req.Filters.MinExperience, 'f', -1, 64))
	}
	if req.Filters.MaxExperience != nil {
		parts = append(parts, "maxexp="+strconv.FormatFloat(*req.Filters.MaxExperience, 'f', -1, 64))
	}

	h := sha256.Sum256([]byte(strings.Join(parts, "&")))
	return keyPrefix + hex.EncodeToString(h[:])
}

func canonicalList(values []string) string {
	clean := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			clean = append(clean, v)
		}
	}
	sort.Strings(clean)
	return strings.Join(clean, ",")
}
