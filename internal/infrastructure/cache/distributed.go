package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/cafe-connect/trust_ledger/pkg/idempotency"
)

// Config describes a standalone or clustered Redis deployment
type Config struct {
	Addrs      []string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// ClaimStore is an idempotency.Store backed by Redis SETNX, shared by every ledger replica
type ClaimStore struct {
	client redis.UniversalClient
	logger *zap.Logger
	prefix string
}

var _ idempotency.Store = (*ClaimStore)(nil)

func NewClaimStore(cfg *Config, logger *zap.Logger) (*ClaimStore, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      cfg.Addrs,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: cfg.MaxRetries,
		PoolSize:   cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewClaimStoreWithClient(client, logger), nil
}

// NewClaimStoreWithClient wraps an existing client
func NewClaimStoreWithClient(client redis.UniversalClient, logger *zap.Logger) *ClaimStore {
	return &ClaimStore{
		client: client,
		logger: logger,
		prefix: "trust_ledger:claim:",
	}
}

func (s *ClaimStore) Claim(ctx context.Context, key, owner string, ttl time.Duration) (string, bool, error) {
	ttl, err := idempotency.ValidateTTL(ttl)
	if err != nil {
		return "", false, err
	}
	fullKey := s.prefix + key

	ok, err := s.client.SetNX(ctx, fullKey, owner, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("claim %s: %w", key, err)
	}
	if ok {
		return owner, true, nil
	}

	holder, err := s.client.Get(ctx, fullKey).Result()
	if err == redis.Nil {
		// expired between SETNX and GET; try once more
		ok, err = s.client.SetNX(ctx, fullKey, owner, ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("claim %s: %w", key, err)
		}
		if ok {
			return owner, true, nil
		}
		holder, err = s.client.Get(ctx, fullKey).Result()
	}
	if err != nil {
		return "", false, fmt.Errorf("read claim %s: %w", key, err)
	}

	s.logger.Debug("idempotency claim held", zap.String("key", key), zap.String("holder", holder))
	return holder, holder == owner, nil
}

func (s *ClaimStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func (s *ClaimStore) Close() error {
	return s.client.Close()
}
