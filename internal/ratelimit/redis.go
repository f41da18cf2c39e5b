package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript returns {allowed, count, pttl}. A missing key starts a new window;
// INCR keeps the key's expiry so the window stays fixed.
var hitScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
if not current then
  redis.call('SET', KEYS[1], 1, 'PX', window)
  return {1, 1, window}
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
current = tonumber(current)
if current < limit then
  current = redis.call('INCR', KEYS[1])
  return {1, current, ttl}
end
return {0, current, ttl}
`)

// RedisStore keeps windows in Redis so every replica shares one budget.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisStore{redis: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) Hit(ctx context.Context, key string, profile Profile) (Decision, error) {
	res, err := hitScript.Run(ctx, s.redis,
		[]string{s.prefix + ":" + key},
		profile.MaxRequests,
		profile.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, res)
	}

	allowed, count := res[0] == 1, int(res[1])
	ttl := time.Duration(res[2]) * time.Millisecond

	d := Decision{
		Allowed: allowed,
		Limit:   profile.MaxRequests,
		ResetAt: s.now().Add(ttl),
	}
	if allowed {
		d.Remaining = profile.MaxRequests - count
	} else {
		d.RetryAfter = ttl
	}
	return d, nil
}
