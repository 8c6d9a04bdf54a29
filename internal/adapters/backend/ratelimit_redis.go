package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"athena/internal/domain/model"
	"athena/pkg/errors"
)

// RedisRateLimiter implements a distributed token bucket via Redis,
// holding limits across replicas.
type RedisRateLimiter struct {
	client  *redis.Client
	backend model.BackendKind
	rate    float64 // tokens per second
	burst   int
	key     string
	script  *redis.Script
}

// Lua script for the token bucket (atomic).
// KEYS[1] = bucket key
// ARGV[1] = rate (tokens per second)
// ARGV[2] = burst (max tokens)
// ARGV[3] = current timestamp (seconds, float)
// Returns: 1 if allowed, 0 if denied
const luaTokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call('HMGET', key, 'tokens', 'last_update')
local tokens = tonumber(data[1])
local last_update = tonumber(data[2])

if not tokens then
    tokens = burst
    last_update = now
end

local elapsed = now - last_update
tokens = math.min(burst, tokens + elapsed * rate)

if tokens >= 1.0 then
    tokens = tokens - 1.0
    redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
    redis.call('EXPIRE', key, 3600)
    return 1
else
    redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
    redis.call('EXPIRE', key, 3600)
    return 0
end
`

// NewRedisRateLimiter creates a distributed limiter for one backend family.
func NewRedisRateLimiter(client *redis.Client, backend model.BackendKind, reqPerMinute int) *RedisRateLimiter {
	burst := reqPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &RedisRateLimiter{
		client:  client,
		backend: backend,
		rate:    float64(reqPerMinute) / 60.0,
		burst:   burst,
		key:     fmt.Sprintf("athena:ratelimit:%s", backend),
		script:  redis.NewScript(luaTokenBucketScript),
	}
}

// Allow checks if a request can proceed, consuming a token if available.
// A Redis failure lets the request through: rate limiting is protective,
// not load bearing.
func (l *RedisRateLimiter) Allow() bool {
	now := float64(time.Now().UnixNano()) / float64(time.Second)

	res, err := l.script.Run(context.Background(), l.client,
		[]string{l.key}, l.rate, l.burst, now).Int()
	if err != nil {
		return true
	}
	return res == 1
}

// Wait blocks until a token is available or the context is cancelled.
func (l *RedisRateLimiter) Wait(ctx context.Context) error {
	for {
		if l.Allow() {
			return nil
		}

		waitTime := time.Duration(float64(time.Second) / l.rate)
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "rate limiter wait cancelled for backend %s", l.backend)
		case <-time.After(waitTime):
		}
	}
}

// Limit returns the current rate limit in requests per minute.
func (l *RedisRateLimiter) Limit() float64 {
	return l.rate * 60.0
}
