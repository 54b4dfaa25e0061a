package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// slidingWindow prunes scores at or before now-window, then records now when
// fewer than max attempts remain. Scores are unix milliseconds.
var slidingWindow = goredis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
if redis.call('ZCARD', KEYS[1]) >= max then
	return 0
end
redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return 1
`)

// RateLimitStore implements guard.WindowStore with a sorted set per key, so
// every context sharing the server counts against the same window.
type RateLimitStore struct {
	client goredis.UniversalClient
	prefix string
}

func NewRateLimitStore(client goredis.UniversalClient) *RateLimitStore {
	return &RateLimitStore{
		client: client,
		prefix: "ratelimit:",
	}
}

func (s *RateLimitStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration, max int) (bool, error) {
	nowMs := now.UnixMilli()
	member := strconv.FormatInt(nowMs, 10) + ":" + uuid.NewString()
	res, err := slidingWindow.Run(ctx, s.client, []string{s.prefix + key},
		nowMs, window.Milliseconds(), max, member).Int()
	if err != nil {
		return false, fmt.Errorf("redis rate limit hit: %w", err)
	}
	return res == 1, nil
}
