package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	PaymentModeSandbox = "sandbox"
	PaymentModeGateway = "gateway"
)

// Config holds all configuration for the application
type Config struct {
	Environment    string               `mapstructure:"environment"`
	LogLevel       string               `mapstructure:"log_level"`
	Server         ServerConfig         `mapstructure:"server"`
	JWT            JWTConfig            `mapstructure:"jwt"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Graph          GraphConfig          `mapstructure:"graph"`
	Payment        PaymentConfig        `mapstructure:"payment"`
	Ledger         LedgerConfig         `mapstructure:"ledger"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
	Jobs           JobsConfig           `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type JWTConfig struct {
	Secret   string `mapstructure:"secret"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

// RedisConfig backs the shared deposit claim store. Disabled means claims stay in process.
type RedisConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Addrs      []string `mapstructure:"addrs"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	PoolSize   int      `mapstructure:"pool_size"`
	MaxRetries int      `mapstructure:"max_retries"`
}

type GraphConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type PaymentConfig struct {
	Mode             string `mapstructure:"mode"` // sandbox, gateway
	BaseURL          string `mapstructure:"base_url"`
	APIKey           string `mapstructure:"api_key"`
	Timeout          int    `mapstructure:"timeout"`
	RateLimit        int    `mapstructure:"rate_limit"`
	Burst            int    `mapstructure:"burst"`
	SandboxLatencyMS int    `mapstructure:"sandbox_latency_ms"`
	SandboxRate      string `mapstructure:"sandbox_rate"`
	RetryAttempts    int    `mapstructure:"retry_attempts"`
}

type LedgerConfig struct {
	DefaultConversionRate string `mapstructure:"default_conversion_rate"`
	ClaimTTL              int    `mapstructure:"claim_ttl"`
	HistoryLimit          int    `mapstructure:"history_limit"`
	LimitWindow           int    `mapstructure:"limit_window"`
}

type CircuitBreakerConfig struct {
	MaxRequests uint32 `mapstructure:"max_requests"`
	Interval    int    `mapstructure:"interval"`
	Timeout     int    `mapstructure:"timeout"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

type JobsConfig struct {
	StatsSchedule string `mapstructure:"stats_schedule"`
}

// Load reads .env, an optional config.yaml and the environment, in that order of precedence
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()
	return load(viper.New(), "./configs", ".")
}

func load(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	overrideFromEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.shutdown_timeout", 30)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_min", 120)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "trust_ledger")
	v.SetDefault("jwt.audience", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addrs", []string{"localhost:6379"})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.max_retries", 3)

	v.SetDefault("graph.enabled", false)
	v.SetDefault("graph.uri", "bolt://localhost:7687")
	v.SetDefault("graph.database", "neo4j")
	v.SetDefault("graph.username", "")
	v.SetDefault("graph.password", "")
	v.SetDefault("graph.max_connections", 20)

	v.SetDefault("payment.mode", PaymentModeSandbox)
	v.SetDefault("payment.base_url", "")
	v.SetDefault("payment.api_key", "")
	v.SetDefault("payment.timeout", 15)
	v.SetDefault("payment.rate_limit", 20)
	v.SetDefault("payment.burst", 5)
	v.SetDefault("payment.sandbox_latency_ms", 0)
	v.SetDefault("payment.sandbox_rate", "100")
	v.SetDefault("payment.retry_attempts", 3)

	v.SetDefault("ledger.default_conversion_rate", "100")
	v.SetDefault("ledger.claim_ttl", 86400)
	v.SetDefault("ledger.history_limit", 50)
	v.SetDefault("ledger.limit_window", 86400)

	v.SetDefault("circuit_breaker.max_requests", 3)
	v.SetDefault("circuit_breaker.interval", 10)
	v.SetDefault("circuit_breaker.timeout", 60)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.service_name", "trust-ledger")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("jobs.stats_schedule", "@every 30s")
}

func overrideFromEnv(v *viper.Viper) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("server.port", p)
		}
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		v.Set("jwt.secret", jwtSecret)
	}
	if addrs := os.Getenv("REDIS_ADDRS"); addrs != "" {
		var list []string
		for _, part := range strings.Split(addrs, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				list = append(list, trimmed)
			}
		}
		if len(list) > 0 {
			v.Set("redis.addrs", list)
		}
	}
	if graphURI := os.Getenv("NEO4J_URI"); graphURI != "" {
		v.Set("graph.uri", graphURI)
	}
	if graphPassword := os.Getenv("NEO4J_PASSWORD"); graphPassword != "" {
		v.Set("graph.password", graphPassword)
	}
	if apiKey := os.Getenv("PAYMENT_GATEWAY_API_KEY"); apiKey != "" {
		v.Set("payment.api_key", apiKey)
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		v.Set("tracing.endpoint", endpoint)
	}
}

func validate(config *Config) error {
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if config.Environment == "production" && len(config.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters in production")
	}

	switch config.Payment.Mode {
	case PaymentModeSandbox:
	case PaymentModeGateway:
		if config.Payment.BaseURL == "" {
			return fmt.Errorf("payment base_url is required in gateway mode")
		}
	default:
		return fmt.Errorf("unknown payment mode %q", config.Payment.Mode)
	}

	if _, err := config.Ledger.ConversionRate(); err != nil {
		return err
	}
	if config.Payment.Mode == PaymentModeSandbox {
		if _, err := decimal.NewFromString(config.Payment.SandboxRate); err != nil {
			return fmt.Errorf("invalid payment sandbox_rate: %w", err)
		}
	}

	if config.Redis.Enabled && len(config.Redis.Addrs) == 0 {
		return fmt.Errorf("redis addrs are required when redis is enabled")
	}
	if config.Graph.Enabled && config.Graph.URI == "" {
		return fmt.Errorf("graph uri is required when graph projection is enabled")
	}
	if config.Tracing.Enabled && config.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	if config.Jobs.StatsSchedule == "" {
		return fmt.Errorf("jobs stats_schedule is required")
	}
	return nil
}

// ConversionRate parses the fallback units-per-currency-unit rate
func (l LedgerConfig) ConversionRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(l.DefaultConversionRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid ledger default_conversion_rate: %w", err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("ledger default_conversion_rate must be positive")
	}
	return rate, nil
}

func (l LedgerConfig) ClaimTTLDuration() time.Duration {
	return time.Duration(l.ClaimTTL) * time.Second
}

func (l LedgerConfig) LimitWindowDuration() time.Duration {
	return time.Duration(l.LimitWindow) * time.Second
}

func (p PaymentConfig) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout) * time.Second
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
