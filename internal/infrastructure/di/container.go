package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/cafe-connect/trust_ledger/internal/adapters/gateway"
	"github.com/cafe-connect/trust_ledger/internal/adapters/resilient"
	"github.com/cafe-connect/trust_ledger/internal/adapters/sandbox"
	"github.com/cafe-connect/trust_ledger/internal/api/handlers"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/alerts"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/identity"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/ledger"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/scamradar"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/stats"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/trust"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/wallet"
	"github.com/cafe-connect/trust_ledger/internal/infrastructure/cache"
	"github.com/cafe-connect/trust_ledger/internal/infrastructure/config"
	"github.com/cafe-connect/trust_ledger/internal/infrastructure/graph"
	"github.com/cafe-connect/trust_ledger/pkg/circuitbreaker"
	"github.com/cafe-connect/trust_ledger/pkg/clock"
	"github.com/cafe-connect/trust_ledger/pkg/health"
	"github.com/cafe-connect/trust_ledger/pkg/idempotency"
	"github.com/cafe-connect/trust_ledger/pkg/jobqueue"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
	"github.com/cafe-connect/trust_ledger/pkg/ratelimit"
	"github.com/cafe-connect/trust_ledger/pkg/retry"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *logger.Logger
	Clock     clock.Clock
	Validator *validator.Validate

	// Infrastructure; Redis and Graph are nil when disabled
	Redis       redis.UniversalClient
	Graph       graph.Client
	Payments    *resilient.Adapter
	RateLimiter ratelimit.Limiter
	Health      *health.HealthChecker
	Scheduler   *jobqueue.JobScheduler

	// Domain services
	Stats     *stats.Aggregator
	Identity  *identity.Service
	Wallets   *wallet.Service
	Alerts    *alerts.Service
	Trust     *trust.Service
	Ledger    *ledger.Service
	ScamRadar *scamradar.Service
}

// NewContainer wires every component from configuration. Optional backends that are
// enabled but unreachable fail startup.
func NewContainer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config:    cfg,
		Logger:    log,
		Clock:     clock.System{},
		Validator: handlers.NewValidator(),
		Health:    health.NewHealthChecker(5 * time.Second),
		Scheduler: jobqueue.NewJobScheduler(log.Zap()),
	}

	if err := c.initializeInfrastructure(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	if err := c.initializeDomainServices(); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	if err := c.Scheduler.AddJob(jobqueue.StatsPublisherJob(cfg.Jobs.StatsSchedule, c.Stats)); err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("failed to schedule stats publisher: %w", err)
	}
	return c, nil
}

func (c *Container) initializeInfrastructure(ctx context.Context) error {
	cfg := c.Config

	limit := int64(cfg.Server.RateLimitPerMin)
	if limit <= 0 {
		limit = 100
	}
	limiterCfg := ratelimit.Config{Limit: limit, Window: time.Minute}
	c.RateLimiter = ratelimit.NewLocalLimiter(limiterCfg)

	if cfg.Redis.Enabled {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:      cfg.Redis.Addrs,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			MaxRetries: cfg.Redis.MaxRetries,
			PoolSize:   cfg.Redis.PoolSize,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Redis = client
		c.RateLimiter = ratelimit.NewDistributedLimiter(client, limiterCfg, c.Logger.Zap())
		c.Health.Register(health.NewRedisChecker(client))
		c.Logger.Info("Redis claim store connected", "addrs", cfg.Redis.Addrs)
	}

	if cfg.Graph.Enabled {
		client, err := graph.NewNeo4jClient(ctx, graph.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to graph database: %w", err)
		}
		c.Graph = client
		c.Health.Register(health.NewGraphChecker(client))
		c.Logger.Info("Graph projection enabled", "uri", cfg.Graph.URI)
	}

	payments, settlement, err := c.paymentNetwork()
	if err != nil {
		return err
	}
	policy := retry.PolicyPaymentAdapter
	if cfg.Payment.RetryAttempts > 0 {
		policy = policy.WithMaxAttempts(cfg.Payment.RetryAttempts)
	}
	c.Payments = resilient.New(payments, settlement, resilient.Options{
		Service: "payment_" + cfg.Payment.Mode,
		Breaker: circuitbreaker.Config{
			MaxRequests: cfg.CircuitBreaker.MaxRequests,
			Interval:    time.Duration(cfg.CircuitBreaker.Interval) * time.Second,
			Timeout:     time.Duration(cfg.CircuitBreaker.Timeout) * time.Second,
		},
		Policy: policy,
	}, c.Logger)
	c.Health.Register(health.NewBreakerChecker("payment_network", c.Payments))
	return nil
}

func (c *Container) paymentNetwork() (ledger.PaymentAdapter, ledger.SettlementAdapter, error) {
	p := c.Config.Payment
	switch p.Mode {
	case config.PaymentModeGateway:
		client := gateway.NewClient(gateway.Config{
			BaseURL:   p.BaseURL,
			APIKey:    p.APIKey,
			Timeout:   p.TimeoutDuration(),
			RateLimit: p.RateLimit,
			Burst:     p.Burst,
		}, c.Logger.Zap())
		return client, client, nil
	case config.PaymentModeSandbox:
		rate, err := decimal.NewFromString(p.SandboxRate)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid sandbox rate: %w", err)
		}
		network := sandbox.New(sandbox.Config{
			Rate:    rate,
			Latency: time.Duration(p.SandboxLatencyMS) * time.Millisecond,
		}, c.Clock, c.Logger.Zap())
		c.Logger.Warn("Payment network running in sandbox mode")
		return network, network, nil
	default:
		return nil, nil, fmt.Errorf("unknown payment mode %q", p.Mode)
	}
}

func (c *Container) initializeDomainServices() error {
	cfg := c.Config

	c.Stats = stats.NewAggregator(c.Clock)
	c.Identity = identity.NewService(c.Clock, c.Logger)
	c.Wallets = wallet.NewService(c.Identity, c.Stats, c.Clock, c.Logger)
	c.Alerts = alerts.NewService(c.Stats, c.Clock, c.Logger)

	var projector trust.Projector
	if c.Graph != nil {
		projector = graph.NewProjector(c.Graph)
	}
	c.Trust = trust.NewService(c.Alerts, c.Stats, projector, c.Clock, c.Logger)

	var claims idempotency.Store = idempotency.NewMemoryStore()
	if c.Redis != nil {
		claims = cache.NewClaimStoreWithClient(c.Redis, c.Logger.Zap())
	}

	rate, err := cfg.Ledger.ConversionRate()
	if err != nil {
		return err
	}
	c.Ledger = ledger.NewService(ledger.Dependencies{
		Wallets:    c.Wallets,
		Alerts:     c.Alerts,
		Circles:    c.Trust,
		Stats:      c.Stats,
		Payments:   c.Payments,
		Settlement: c.Payments,
		Claims:     claims,
		Clock:      c.Clock,
		Logger:     c.Logger,
	}, ledger.Config{
		DefaultConversionRate: rate,
		ClaimTTL:              cfg.Ledger.ClaimTTLDuration(),
		DefaultHistoryLimit:   cfg.Ledger.HistoryLimit,
		LimitWindow:           cfg.Ledger.LimitWindowDuration(),
	})

	c.ScamRadar = scamradar.NewService(c.Alerts, c.Clock, c.Logger)
	return nil
}

// Close releases external connections
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Graph != nil {
		if err := c.Graph.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close graph: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
