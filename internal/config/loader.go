package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BRANDIT_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BRANDIT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "BRANDIT_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // platform-provided port
	setStringSlice(&cfg.Server.CORSOrigins, "BRANDIT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "BRANDIT_SERVER_API_KEY")
	setStr(&cfg.Server.AdminKeyHash, "BRANDIT_SERVER_ADMIN_KEY_HASH")
	setInt(&cfg.Server.RateLimit, "BRANDIT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "BRANDIT_SERVER_RATE_WINDOW")

	// ── Storage ──
	setStr(&cfg.Storage.Driver, "BRANDIT_STORAGE_DRIVER")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "BRANDIT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "BRANDIT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BRANDIT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BRANDIT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BRANDIT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BRANDIT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BRANDIT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BRANDIT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BRANDIT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BRANDIT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BRANDIT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BRANDIT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BRANDIT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BRANDIT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BRANDIT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BRANDIT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "BRANDIT_REDIS_KEY_PREFIX")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "BRANDIT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BRANDIT_S3_REGION")
	setStr(&cfg.S3.Bucket, "BRANDIT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BRANDIT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BRANDIT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BRANDIT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BRANDIT_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "BRANDIT_S3_PREFIX")

	// ── Pricing ──
	setDuration(&cfg.Pricing.GracePeriod, "BRANDIT_PRICING_GRACE_PERIOD")
	setFloat64(&cfg.Pricing.FloorRatio, "BRANDIT_PRICING_FLOOR_RATIO")
	setFloat64(&cfg.Pricing.CrashRatio, "BRANDIT_PRICING_CRASH_RATIO")
	setDuration(&cfg.Pricing.LockTTL, "BRANDIT_PRICING_LOCK_TTL")

	// ── Payment ──
	setStr(&cfg.Payment.KeyID, "BRANDIT_PAYMENT_KEY_ID")
	setStr(&cfg.Payment.Secret, "BRANDIT_PAYMENT_SECRET")
	setStr(&cfg.Payment.SealedSecretPath, "BRANDIT_PAYMENT_SEALED_SECRET_PATH")
	setStr(&cfg.Payment.SecretPassword, "BRANDIT_PAYMENT_SECRET_PASSWORD")
	setStr(&cfg.Payment.Currency, "BRANDIT_PAYMENT_CURRENCY")

	// ── Worker ──
	setInt(&cfg.Worker.Workers, "BRANDIT_WORKER_WORKERS")
	setInt(&cfg.Worker.Buffer, "BRANDIT_WORKER_BUFFER")
	setDuration(&cfg.Worker.JobTimeout, "BRANDIT_WORKER_JOB_TIMEOUT")
	setDuration(&cfg.Worker.DrainWait, "BRANDIT_WORKER_DRAIN_WAIT")

	// ── Tracker ──
	setStr(&cfg.Tracker.CatalogPath, "BRANDIT_TRACKER_CATALOG_PATH")
	setStr(&cfg.Tracker.DefaultName, "BRANDIT_TRACKER_DEFAULT_NAME")
	setInt(&cfg.Tracker.PlayerMaxLevel, "BRANDIT_TRACKER_PLAYER_MAX_LEVEL")
	setInt(&cfg.Tracker.MaxLogEntries, "BRANDIT_TRACKER_MAX_LOG_ENTRIES")

	// ── Archive ──
	setInt(&cfg.Archive.RetentionDays, "BRANDIT_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "BRANDIT_ARCHIVE_INTERVAL")
	setInt64(&cfg.Archive.MultipartThreshold, "BRANDIT_ARCHIVE_MULTIPART_THRESHOLD")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BRANDIT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BRANDIT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BRANDIT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BRANDIT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "BRANDIT_MODE")
	setStr(&cfg.LogLevel, "BRANDIT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
