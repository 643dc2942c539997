package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Limits      LimitsConfig      `mapstructure:"limits"`
	Retry       RetryConfig       `mapstructure:"retry"`
	Breaker     BreakerConfig     `mapstructure:"breaker"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Gateways    GatewaysConfig    `mapstructure:"gateways"`
	Notifier    NotifierConfig    `mapstructure:"notifier"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LimitsConfig holds payment ceilings in minor currency units.
type LimitsConfig struct {
	Daily          int64 `mapstructure:"daily"`
	PerTransaction int64 `mapstructure:"per_transaction"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
}

type BreakerConfig struct {
	Threshold int64         `mapstructure:"threshold"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
}

type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// GatewaysConfig selects the default provider and carries per-provider credentials.
type GatewaysConfig struct {
	Default  string        `mapstructure:"default"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Paystack GatewayConfig `mapstructure:"paystack"`
	Sandbox  GatewayConfig `mapstructure:"sandbox"`
}

// GatewayConfig holds credentials for a single payment provider.
type GatewayConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	PublicKey     string `mapstructure:"public_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Sandbox       bool   `mapstructure:"sandbox"`
}

// ByName returns the credentials block for a provider name.
func (g GatewaysConfig) ByName(name string) GatewayConfig {
	switch name {
	case "paystack":
		return g.Paystack
	case "sandbox":
		return g.Sandbox
	default:
		return GatewayConfig{}
	}
}

type NotifierConfig struct {
	URL    string `mapstructure:"url"`
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: POE_ (Payment Orchestration Engine).
// Nested keys use underscore: POE_DATABASE_HOST, POE_LIMITS_DAILY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "payment_orchestrator")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("limits.daily", 10000000)          // 100,000.00 in minor units
	v.SetDefault("limits.per_transaction", 5000000) // 50,000.00 in minor units
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff_base", "1s")
	v.SetDefault("breaker.threshold", 5)
	v.SetDefault("breaker.cooldown", "1m")
	v.SetDefault("idempotency.ttl", "24h")
	v.SetDefault("gateways.default", "paystack")
	v.SetDefault("gateways.timeout", "30s")
	v.SetDefault("gateways.paystack.secret_key", "")
	v.SetDefault("gateways.paystack.public_key", "")
	v.SetDefault("gateways.paystack.webhook_secret", "")
	v.SetDefault("gateways.paystack.sandbox", true)
	v.SetDefault("gateways.sandbox.secret_key", "sandbox")
	v.SetDefault("gateways.sandbox.public_key", "sandbox")
	v.SetDefault("gateways.sandbox.webhook_secret", "sandbox")
	v.SetDefault("gateways.sandbox.sandbox", true)
	v.SetDefault("notifier.url", "")
	v.SetDefault("notifier.secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: POE_DATABASE_HOST -> database.host
	v.SetEnvPrefix("POE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
