package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/hirestack/candidex/internal/db"
)

// checkAndIncrScript increments the window counter unless it already sits at
// limit+1, starts the window on first increment, and reports the counter with
// the remaining window in one round trip. Keeping read, increment, and expiry
// in one script closes the check-then-increment race between concurrent
// requests.
var checkAndIncrScript = rueidis.NewLuaScript(`
local c = tonumber(redis.call('GET', KEYS[1]) or '0')
if c <= tonumber(ARGV[1]) then
  c = redis.call('INCR', KEYS[1])
  if c == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[2])
  end
end
local ttl = redis.call('PTTL', KEYS[1])
return {c, ttl}
`)

// CheckAndIncr atomically bumps the rate-limit counter for key inside its
// current window. The returned count never exceeds limit+1.
func (s *Store) CheckAndIncr(
	ctx context.Context, key string, limit int64, window time.Duration,
) (int64, time.Duration, error) {
	resp := checkAndIncrScript.Exec(ctx, s.client,
		[]string{key},
		[]string{strconv.FormatInt(limit, 10), strconv.FormatInt(window.Milliseconds(), 10)},
	)
	arr, err := resp.ToArray()
	if err != nil {
		return 0, 0, &db.Error{Op: db.OpEval, Err: err}
	}
	if len(arr) != 2 {
		return 0, 0, &db.Error{Op: db.OpEval, Err: fmt.Errorf("unexpected reply length %d", len(arr))}
	}

	count, err := arr[0].AsInt64()
	if err != nil {
		return 0, 0, &db.Error{Op: db.OpEval, Err: fmt.Errorf("parse count: %w", err)}
	}
	ttlMillis, err := arr[1].AsInt64()
	if err != nil {
		return 0, 0, &db.Error{Op: db.OpEval, Err: fmt.Errorf("parse ttl: %w", err)}
	}

	ttl := time.Duration(ttlMillis) * time.Millisecond
	if ttlMillis < 0 {
		// PTTL -1/-2: window vanished between INCR and PTTL, assume a full window
		ttl = window
	}
	return count, ttl, nil
}
