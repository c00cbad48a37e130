package health

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisChecker pings the shared claim store
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return NewUnhealthyResult(c.Name(), err).WithDuration(time.Since(start))
	}

	stats := c.client.PoolStats()
	return NewHealthyResult(c.Name(), "claim store reachable").
		WithDuration(time.Since(start)).
		WithMetadata("total_conns", stats.TotalConns).
		WithMetadata("idle_conns", stats.IdleConns)
}
