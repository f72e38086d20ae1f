package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/brandit/internal/blob/s3"
	"github.com/alanyoungcy/brandit/internal/cache/redis"
	"github.com/alanyoungcy/brandit/internal/config"
	"github.com/alanyoungcy/brandit/internal/domain"
	"github.com/alanyoungcy/brandit/internal/notify"
	"github.com/alanyoungcy/brandit/internal/server/handler"
	"github.com/alanyoungcy/brandit/internal/store/memory"
	"github.com/alanyoungcy/brandit/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	ProductStore domain.ProductStore
	OrderStore   domain.OrderStore
	ProfileStore domain.ProfileStore
	AuditStore   domain.AuditStore

	// Caches
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter // nil with the memory driver
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage, nil unless an S3 bucket is configured.
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.PriceArchiver

	// Notifications
	Notifier *notify.Notifier

	// Checks are reported by /api/health.
	Checks map[string]handler.Check
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Checks: map[string]handler.Check{}}

	switch strings.ToLower(cfg.Storage.Driver) {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			applied, err := pgClient.RunMigrations(ctx)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
			logger.InfoContext(ctx, "postgres migrations applied", slog.Int("count", applied))
		}

		pool := pgClient.Pool()
		deps.ProductStore = postgres.NewProductStore(pool)
		deps.OrderStore = postgres.NewOrderStore(pool)
		deps.ProfileStore = postgres.NewProfileStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.Checks["postgres"] = pgClient.Ping

		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient, 0)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.Checks["redis"] = redisClient.Ping

	default:
		deps.ProductStore = memory.NewProductStore()
		deps.OrderStore = memory.NewOrderStore()
		deps.ProfileStore = memory.NewProfileStore()
		deps.AuditStore = memory.NewAuditStore()
		deps.PriceCache = memory.NewPriceCache()
		deps.LockManager = memory.NewLockManager()
		deps.SignalBus = memory.NewSignalBus(256)
		logger.WarnContext(ctx, "using in-memory storage; data is lost on restart")
	}

	// --- S3 blob storage (only when a bucket is configured) ---
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.ProductStore, deps.AuditStore, s3blob.ArchiverConfig{
			MultipartThreshold: cfg.Archive.MultipartThreshold,
		})
		deps.Checks["s3"] = s3Client.Health
	}

	deps.Notifier = newNotifier(cfg.Notify, logger)

	return deps, cleanup, nil
}

// newNotifier builds the notifier from whichever channels are configured.
func newNotifier(cfg config.NotifyConfig, logger *slog.Logger) *notify.Notifier {
	var senders []notify.Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender("", cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.DiscordWebhookURL))
	}
	return notify.NewNotifier(senders, cfg.Events, logger)
}
