// Package queue runs deferred price updates. A paid order enqueues one job
// per line item and returns; a fixed pool of workers applies them. Between
// the payment being marked completed and the worker finishing, readers still
// see the old price.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// PurchaseJob asks for one purchase to be applied to a product.
type PurchaseJob struct {
	OrderID    string
	ProductID  string
	EnqueuedAt time.Time
}

// PurchaseApplier applies a single purchase. Implementations serialize
// concurrent calls for the same product.
type PurchaseApplier interface {
	ApplyPurchase(ctx context.Context, productID string) (domain.Product, error)
}

// Config sizes the dispatcher.
type Config struct {
	Workers    int
	Buffer     int
	JobTimeout time.Duration
}

// Stats is a point-in-time view of the dispatcher counters.
type Stats struct {
	Enqueued  uint64 `json:"enqueued"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Rejected  uint64 `json:"rejected"`
	Depth     int    `json:"depth"`
	Workers   int    `json:"workers"`
}

// Dispatcher is a buffered channel drained by a fixed worker pool.
type Dispatcher struct {
	cfg     Config
	applier PurchaseApplier
	logger  *slog.Logger
	jobs    chan PurchaseJob

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	enqueued  atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
}

// NewDispatcher creates a Dispatcher. Workers default to 4, the buffer to
// 1024 and the per-job timeout to 10 seconds.
func NewDispatcher(cfg Config, applier PurchaseApplier, logger *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:     cfg,
		applier: applier,
		logger:  logger.With(slog.String("component", "dispatcher")),
		jobs:    make(chan PurchaseJob, cfg.Buffer),
	}
}

// Start launches the workers. Jobs run on a context detached from ctx's
// cancellation so Stop can drain what is already queued.
func (d *Dispatcher) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(base, i)
	}
	d.logger.Info("dispatcher started",
		slog.Int("workers", d.cfg.Workers),
		slog.Int("buffer", d.cfg.Buffer),
	)
}

// Submit enqueues job without blocking. It returns false when the buffer is
// full or the dispatcher is stopped.
func (d *Dispatcher) Submit(job PurchaseJob) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.rejected.Add(1)
		return false
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	select {
	case d.jobs <- job:
		d.enqueued.Add(1)
		return true
	default:
		d.rejected.Add(1)
		d.logger.Warn("dispatcher: queue full, job rejected",
			slog.String("order_id", job.OrderID),
			slog.String("product_id", job.ProductID),
		)
		return false
	}
}

// Stop closes intake and blocks until every queued job has been handled.
// It is safe to call more than once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped",
		slog.Uint64("processed", d.processed.Load()),
		slog.Uint64("failed", d.failed.Load()),
	)
}

// Drain waits until every enqueued job has been handled or ctx is done.
func (d *Dispatcher) Drain(ctx context.Context) bool {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for {
		if d.processed.Load()+d.failed.Load() == d.enqueued.Load() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
	}
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Enqueued:  d.enqueued.Load(),
		Processed: d.processed.Load(),
		Failed:    d.failed.Load(),
		Rejected:  d.rejected.Load(),
		Depth:     len(d.jobs),
		Workers:   d.cfg.Workers,
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for job := range d.jobs {
		d.run(ctx, id, job)
	}
}

func (d *Dispatcher) run(ctx context.Context, id int, job PurchaseJob) {
	jctx, cancel := context.WithTimeout(ctx, d.cfg.JobTimeout)
	defer cancel()

	p, err := d.applier.ApplyPurchase(jctx, job.ProductID)
	if err != nil {
		d.failed.Add(1)
		d.logger.Error("dispatcher: apply purchase failed",
			slog.Int("worker", id),
			slog.String("order_id", job.OrderID),
			slog.String("product_id", job.ProductID),
			slog.String("error", err.Error()),
		)
		return
	}
	d.processed.Add(1)
	d.logger.Debug("dispatcher: purchase applied",
		slog.Int("worker", id),
		slog.String("order_id", job.OrderID),
		slog.String("product_id", job.ProductID),
		slog.Float64("price", p.CurrentPrice),
		slog.Duration("lag", time.Since(job.EnqueuedAt)),
	)
}
