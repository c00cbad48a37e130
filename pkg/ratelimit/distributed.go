package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter decides whether the caller identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config defines rate limiter configuration
type Config struct {
	// Limit is the maximum number of requests allowed per Window
	Limit int64

	Window time.Duration

	// KeyPrefix is prepended to all Redis keys
	KeyPrefix string
}

// LocalLimiter keeps one token bucket per key inside the process
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func NewLocalLimiter(cfg Config) *LocalLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(cfg.Window / time.Duration(cfg.Limit)),
		burst:    int(cfg.Limit),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow(), nil
}

// DistributedLimiter implements a sliding window shared by every replica through Redis
type DistributedLimiter struct {
	redis  redis.UniversalClient
	config Config
	logger *zap.Logger
}

func NewDistributedLimiter(client redis.UniversalClient, config Config, logger *zap.Logger) *DistributedLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "trust_ledger:ratelimit"
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DistributedLimiter{
		redis:  client,
		config: config,
		logger: logger,
	}
}

func (l *DistributedLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.config.KeyPrefix, key)
	now := time.Now()
	windowStart := now.Add(-l.config.Window)

	pipe := l.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	pipe.ZAdd(ctx, redisKey, &redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.config.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Error("Failed to execute rate limit pipeline",
			zap.Error(err),
			zap.String("key", key))
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := countCmd.Val()
	if count > l.config.Limit {
		l.logger.Debug("Rate limit exceeded",
			zap.String("key", key),
			zap.Int64("current", count),
			zap.Int64("limit", l.config.Limit))
		return false, nil
	}
	return true, nil
}
