// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the Redis URL for the notification queue (e.g. redis://localhost:6379/0). Empty disables notifications.
	RedisURL string `mapstructure:"REDIS_URL"`
	// NotificationQueue is the Redis list notifications are pushed onto.
	NotificationQueue string `mapstructure:"NOTIFICATION_QUEUE"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. Only cmd/seed needs it.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file. Required to authenticate callers.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime for tokens issued by cmd/seed (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	// PermissionCacheTTL is how long permission overrides are cached.
	PermissionCacheTTL time.Duration `mapstructure:"PERMISSION_CACHE_TTL"`
	// ThresholdCacheTTL is how long the approval threshold is cached. 0 reads it fresh on every decision.
	ThresholdCacheTTL time.Duration `mapstructure:"THRESHOLD_CACHE_TTL"`
	// SettingsFetchTimeout bounds each settings store read.
	SettingsFetchTimeout time.Duration `mapstructure:"SETTINGS_FETCH_TIMEOUT"`

	// AllowVoteChanges lets a board member replace an earlier vote while the request is under review.
	AllowVoteChanges bool `mapstructure:"ALLOW_VOTE_CHANGES"`
	// MemberNumberPrefix prefixes generated member numbers (e.g. "M" gives M2026-00001).
	MemberNumberPrefix string `mapstructure:"MEMBER_NUMBER_PREFIX"`
	// DefaultApprovalSystem is used when a submission does not name one (SINGLE or MULTI_BOARD).
	DefaultApprovalSystem string `mapstructure:"DEFAULT_APPROVAL_SYSTEM"`

	// OTelEndpoint is the OTLP gRPC collector endpoint. Empty disables export.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("NOTIFICATION_QUEUE", "cms:notifications")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "cms-auth")
	v.SetDefault("JWT_AUDIENCE", "cms-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("PERMISSION_CACHE_TTL", "5m")
	v.SetDefault("THRESHOLD_CACHE_TTL", "0s")
	v.SetDefault("SETTINGS_FETCH_TIMEOUT", "2s")
	v.SetDefault("ALLOW_VOTE_CHANGES", true)
	v.SetDefault("MEMBER_NUMBER_PREFIX", "M")
	v.SetDefault("DEFAULT_APPROVAL_SYSTEM", "SINGLE")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "cms-backend")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.PermissionCacheTTL < 0 || cfg.ThresholdCacheTTL < 0 {
		return nil, errors.New("config: cache TTLs must not be negative")
	}
	if cfg.SettingsFetchTimeout <= 0 {
		return nil, errors.New("config: SETTINGS_FETCH_TIMEOUT must be positive")
	}
	switch cfg.DefaultApprovalSystem {
	case "SINGLE", "MULTI_BOARD":
	default:
		return nil, fmt.Errorf("config: DEFAULT_APPROVAL_SYSTEM must be SINGLE or MULTI_BOARD, got %q", cfg.DefaultApprovalSystem)
	}
	if strings.TrimSpace(cfg.MemberNumberPrefix) == "" {
		return nil, errors.New("config: MEMBER_NUMBER_PREFIX must be set")
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q", c.LogLevel)
	}
	return lvl, nil
}

// AuthEnabled reports whether a JWT public key is configured.
func (c *Config) AuthEnabled() bool {
	return c != nil && c.JWTPublicKey != ""
}
