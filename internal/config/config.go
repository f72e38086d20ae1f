// Package config defines the top-level configuration for brandit and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by BRANDIT_* environment variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Pricing  PricingConfig  `toml:"pricing"`
	Payment  PaymentConfig  `toml:"payment"`
	Worker   WorkerConfig   `toml:"worker"`
	Tracker  TrackerConfig  `toml:"tracker"`
	Archive  ArchiveConfig  `toml:"archive"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int      `toml:"port"`
	CORSOrigins  []string `toml:"cors_origins"`
	APIKey       string   `toml:"api_key"`
	// AdminKeyHash is a bcrypt hash; generate one with `brandit hash-admin-key`.
	AdminKeyHash string   `toml:"admin_key_hash"`
	RateLimit    int      `toml:"rate_limit"`
	RateWindow   duration `toml:"rate_window"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Driver is "memory" or "postgres". The postgres driver also uses Redis
	// for locks, the price cache, pub/sub and rate limiting.
	Driver string `toml:"driver"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters. Archiving is
// disabled while Bucket is empty.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// PricingConfig tunes the price engine.
type PricingConfig struct {
	GracePeriod duration `toml:"grace_period"`
	FloorRatio  float64  `toml:"floor_ratio"`
	CrashRatio  float64  `toml:"crash_ratio"`
	LockTTL     duration `toml:"lock_ttl"`
}

// PaymentConfig holds the payment gateway credentials. The webhook secret can
// be given inline or as a sealed file opened with SecretPassword.
type PaymentConfig struct {
	KeyID            string `toml:"key_id"`
	Secret           string `toml:"secret"`
	SealedSecretPath string `toml:"sealed_secret_path"`
	SecretPassword   string `toml:"secret_password"`
	Currency         string `toml:"currency"`
}

// WorkerConfig sizes the purchase dispatcher.
type WorkerConfig struct {
	Workers    int      `toml:"workers"`
	Buffer     int      `toml:"buffer"`
	JobTimeout duration `toml:"job_timeout"`
	DrainWait  duration `toml:"drain_wait"`
}

// TrackerConfig configures the progression tracker.
type TrackerConfig struct {
	// CatalogPath points at a YAML catalog; empty uses the built-in one.
	CatalogPath    string `toml:"catalog_path"`
	DefaultName    string `toml:"default_name"`
	PlayerMaxLevel int    `toml:"player_max_level"`
	MaxLogEntries  int    `toml:"max_log_entries"`
}

// ArchiveConfig controls price history archiving to S3.
type ArchiveConfig struct {
	RetentionDays      int      `toml:"retention_days"`
	Interval           duration `toml:"interval"`
	MultipartThreshold int64    `toml:"multipart_threshold"`
}

// Retention returns the retention window as a duration.
func (a ArchiveConfig) Retention() time.Duration {
	return time.Duration(a.RetentionDays) * 24 * time.Hour
}

// NotifyConfig holds notification channel settings.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so TOML strings like "5m" decode directly.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with sensible defaults for local
// development against the in-memory stores.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Storage: StorageConfig{Driver: "memory"},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "brandit",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "brandit:",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			ForcePathStyle: true,
		},
		Pricing: PricingConfig{
			GracePeriod: duration{time.Hour},
			FloorRatio:  0.5,
			CrashRatio:  0.5,
			LockTTL:     duration{5 * time.Second},
		},
		Payment: PaymentConfig{Currency: "INR"},
		Worker: WorkerConfig{
			Workers:    4,
			Buffer:     1024,
			JobTimeout: duration{10 * time.Second},
			DrainWait:  duration{10 * time.Second},
		},
		Tracker: TrackerConfig{
			DefaultName:   "Player",
			MaxLogEntries: 100,
		},
		Archive: ArchiveConfig{
			RetentionDays:      30,
			Interval:           duration{24 * time.Hour},
			MultipartThreshold: 64 << 20,
		},
		Notify: NotifyConfig{
			Events: []string{"crash_sale", "manual_crash_sale", "level_up", "skill_unlocked"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"server":  true,
	"full":    true,
	"archive": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration and returns every problem found in one
// error.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, full, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "memory":
		if mode == "archive" {
			errs = append(errs, "storage: archive mode needs the postgres driver")
		}
	case "postgres":
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: unknown driver %q (valid: memory, postgres)", c.Storage.Driver))
	}

	if (mode == "archive" || mode == "full") && c.S3.Bucket != "" && c.S3.Region == "" {
		errs = append(errs, "s3: region must not be empty")
	}
	if mode == "archive" && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket is required for archive mode")
	}

	if c.Pricing.FloorRatio <= 0 || c.Pricing.FloorRatio > 1 {
		errs = append(errs, "pricing: floor_ratio must be in (0, 1]")
	}
	if c.Pricing.CrashRatio <= 0 || c.Pricing.CrashRatio > 1 {
		errs = append(errs, "pricing: crash_ratio must be in (0, 1]")
	}
	if c.Pricing.GracePeriod.Duration < 0 {
		errs = append(errs, "pricing: grace_period must not be negative")
	}

	if c.Payment.SealedSecretPath != "" && c.Payment.SecretPassword == "" {
		errs = append(errs, "payment: secret_password is required when sealed_secret_path is set")
	}

	if c.Worker.Workers < 1 {
		errs = append(errs, "worker: workers must be >= 1")
	}
	if c.Worker.Buffer < 1 {
		errs = append(errs, "worker: buffer must be >= 1")
	}

	if c.Archive.RetentionDays < 1 {
		errs = append(errs, "archive: retention_days must be >= 1")
	}
	if mode == "full" && c.S3.Bucket != "" && c.Archive.Interval.Duration <= 0 {
		errs = append(errs, "archive: interval must be > 0")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
