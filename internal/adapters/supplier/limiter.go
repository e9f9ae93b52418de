package supplier

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ozdirect/pricesync/internal/domain/shared"
	"github.com/ozdirect/pricesync/internal/infrastructure/config"
)

// Limiter grants one supplier request per acquisition. Implementations share
// the vendor quota across processes or pace a single process.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// tokenBucketScript refills from elapsed Redis server time and takes one
// token atomically. Returns {1, 0} when allowed or {0, wait_ms} when the
// bucket is empty.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_per_sec = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local time_result = redis.call('TIME')
local now = tonumber(time_result[1]) + tonumber(time_result[2]) / 1000000

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1])
local last_refill = tonumber(bucket[2])

if tokens == nil then
  tokens = capacity
  last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
  tokens = math.min(capacity, tokens + elapsed * refill_per_sec)
  last_refill = now
end

if tokens >= 1 then
  tokens = tokens - 1
  redis.call('HSET', key, 'tokens', tokens, 'last_refill', last_refill)
  redis.call('EXPIRE', key, ttl)
  return {1, 0}
end

local wait_ms = math.ceil((1 - tokens) / refill_per_sec * 1000)
redis.call('HSET', key, 'tokens', tokens, 'last_refill', last_refill)
redis.call('EXPIRE', key, ttl)
return {0, wait_ms}
`)

// RedisLimiter is a token bucket shared across processes through Redis.
// Refill arithmetic uses the Redis server clock so every process observes
// the same bucket state.
type RedisLimiter struct {
	client      *redis.Client
	key         string
	capacity    int
	refillRate  float64
	maxAttempts int
	clock       shared.Clock
	logger      *zap.Logger
}

// NewRedisLimiter creates a shared token bucket limiter.
func NewRedisLimiter(client *redis.Client, cfg config.SupplierRateLimitConfig, clock shared.Clock, logger *zap.Logger) *RedisLimiter {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	key := cfg.QuotaKey
	if key == "" {
		key = "pricesync:supplier:quota"
	}
	return &RedisLimiter{
		client:      client,
		key:         key,
		capacity:    cfg.Burst,
		refillRate:  float64(cfg.RequestsPerMinute) / 60.0,
		maxAttempts: cfg.MaxAcquireAttempts,
		clock:       clock,
		logger:      logger,
	}
}

// Acquire blocks until a token is granted or the attempt bound is hit.
func (l *RedisLimiter) Acquire(ctx context.Context) error {
	ttl := int((float64(l.capacity)/l.refillRate)*2) + 60
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		res, err := tokenBucketScript.Run(ctx, l.client, []string{l.key}, l.capacity, l.refillRate, ttl).Slice()
		if err != nil {
			return fmt.Errorf("failed to run token bucket script: %w", err)
		}
		if len(res) != 2 {
			return fmt.Errorf("unexpected token bucket reply: %v", res)
		}
		allowed, _ := res[0].(int64)
		if allowed == 1 {
			return nil
		}
		waitMs, _ := res[1].(int64)
		if waitMs < 10 {
			waitMs = 10
		}
		l.logger.Debug("supplier quota empty, waiting",
			zap.Int64("wait_ms", waitMs),
			zap.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(waitMs) * time.Millisecond):
		}
	}
	return &RateLimitError{Attempts: l.maxAttempts, Message: "quota acquisition attempts exhausted"}
}

// LocalLimiter paces a single process with an in-memory bucket. Used when
// Redis is not configured.
type LocalLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter creates an in-process limiter from the same quota numbers.
func NewLocalLimiter(cfg config.SupplierRateLimitConfig) *LocalLimiter {
	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	return &LocalLimiter{limiter: rate.NewLimiter(perSecond, cfg.Burst)}
}

// Acquire blocks until the in-process bucket grants a token.
func (l *LocalLimiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
