package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/brandit/internal/crypto"
	"github.com/alanyoungcy/brandit/internal/pricing"
	"github.com/alanyoungcy/brandit/internal/progression"
	"github.com/alanyoungcy/brandit/internal/queue"
	"github.com/alanyoungcy/brandit/internal/server"
	"github.com/alanyoungcy/brandit/internal/server/handler"
	"github.com/alanyoungcy/brandit/internal/server/ws"
	"github.com/alanyoungcy/brandit/internal/service"
)

// services holds everything built on top of Dependencies.
type services struct {
	products   *service.ProductService
	orders     *service.OrderService
	tracker    *service.TrackerService
	archive    *service.ArchiveService // nil without blob storage
	dispatcher *queue.Dispatcher
}

// buildServices constructs the engines, services and purchase dispatcher.
// The dispatcher is returned unstarted.
func (a *App) buildServices(deps *Dependencies) (*services, error) {
	lockCfg := service.LockConfig{TTL: a.cfg.Pricing.LockTTL.Duration}

	engine := pricing.NewEngine(pricing.Config{
		GracePeriod: a.cfg.Pricing.GracePeriod.Duration,
		FloorRatio:  a.cfg.Pricing.FloorRatio,
		CrashRatio:  a.cfg.Pricing.CrashRatio,
	}, nil)
	products := service.NewProductService(
		deps.ProductStore, engine, deps.LockManager, deps.PriceCache,
		deps.SignalBus, deps.AuditStore, deps.Notifier, lockCfg, a.logger,
	)

	dispatcher := queue.NewDispatcher(queue.Config{
		Workers:    a.cfg.Worker.Workers,
		Buffer:     a.cfg.Worker.Buffer,
		JobTimeout: a.cfg.Worker.JobTimeout.Duration,
	}, products, a.logger)

	secret, err := crypto.LoadSecret(crypto.SecretSource{
		Raw:        a.cfg.Payment.Secret,
		SealedPath: a.cfg.Payment.SealedSecretPath,
		Password:   a.cfg.Payment.SecretPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("app: load payment secret: %w", err)
	}
	signer := crypto.NewPaymentSigner(secret)
	if !signer.Enabled() {
		a.logger.Warn("payment secret not configured; signatures are not verified")
	}
	orders := service.NewOrderService(
		deps.OrderStore, products, signer, dispatcher, deps.AuditStore,
		a.cfg.Payment.Currency, a.logger,
	)

	catalog := progression.DefaultCatalog()
	if a.cfg.Tracker.CatalogPath != "" {
		catalog, err = progression.LoadCatalog(a.cfg.Tracker.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("app: load tracker catalog: %w", err)
		}
	}
	progCfg := progression.DefaultConfig()
	progCfg.PlayerMaxLevel = a.cfg.Tracker.PlayerMaxLevel
	if a.cfg.Tracker.MaxLogEntries > 0 {
		progCfg.MaxLogEntries = a.cfg.Tracker.MaxLogEntries
	}
	tracker := service.NewTrackerService(
		deps.ProfileStore, progression.NewEngine(catalog, progCfg, nil, nil),
		deps.LockManager, deps.SignalBus, deps.Notifier, lockCfg,
		a.cfg.Tracker.DefaultName, a.logger,
	)

	svcs := &services{
		products:   products,
		orders:     orders,
		tracker:    tracker,
		dispatcher: dispatcher,
	}
	if deps.Archiver != nil {
		svcs.archive = service.NewArchiveService(deps.Archiver, deps.BlobReader, a.cfg.Archive.Retention(), a.logger)
	}
	return svcs, nil
}

// ServerMode serves the HTTP API and WebSocket hub and runs the purchase
// dispatcher until ctx is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, svcs)
	return ignoreCanceled(g.Wait())
}

// FullMode runs everything in server mode plus the periodic archiver.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, svcs)

	if svcs.archive != nil {
		g.Go(func() error {
			return svcs.archive.Run(ctx, a.cfg.Archive.Interval.Duration)
		})
	} else {
		a.logger.WarnContext(ctx, "s3 bucket not configured; price history archiving disabled")
	}
	return ignoreCanceled(g.Wait())
}

// ArchiveMode archives price history once and exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}
	if svcs.archive == nil {
		return errors.New("app: archive mode needs an s3 bucket")
	}
	n, err := svcs.archive.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("app: archive: %w", err)
	}
	a.logger.InfoContext(ctx, "archive complete", slog.Int64("points", n))
	return nil
}

// startHTTPServer registers the dispatcher, hub and HTTP server on g. On
// shutdown the server stops first, then the dispatcher drains what was
// already accepted.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	startedAt := time.Now().UTC()

	svcs.dispatcher.Start(ctx)

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: startedAt,
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Checks, a.logger),
		Status:   handler.NewStatusHandler(a.cfg.Mode, startedAt, svcs.dispatcher),
		Products: handler.NewProductHandler(svcs.products, a.logger),
		Orders:   handler.NewOrderHandler(svcs.orders, a.cfg.Payment.KeyID, a.logger),
		Tracker:  handler.NewTrackerHandler(svcs.tracker, a.logger),
	}
	if svcs.archive != nil {
		handlers.Archives = handler.NewArchiveHandler(svcs.archive, a.logger)
	}
	if a.cfg.Server.AdminKeyHash == "" {
		a.logger.WarnContext(ctx, "admin_key_hash not set; admin routes are disabled")
	}

	srv := server.NewServer(server.Config{
		Port:         a.cfg.Server.Port,
		CORSOrigins:  a.cfg.Server.CORSOrigins,
		APIKey:       a.cfg.Server.APIKey,
		AdminKeyHash: a.cfg.Server.AdminKeyHash,
		RateLimit:    a.cfg.Server.RateLimit,
		RateWindow:   a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutCtx)

		drainCtx, cancelDrain := context.WithTimeout(context.Background(), a.cfg.Worker.DrainWait.Duration)
		defer cancelDrain()
		if !svcs.dispatcher.Drain(drainCtx) {
			a.logger.Warn("purchase queue not drained before shutdown",
				slog.Int("depth", svcs.dispatcher.Stats().Depth),
			)
		}
		svcs.dispatcher.Stop()
		svcs.orders.Wait()
		return err
	})
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
