// Package service orchestrates the engines and the storage layer. Services
// are stateless apart from their dependencies: each operation loads state,
// runs an engine transition, persists the result and reports it onward.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/brandit/internal/domain"
	"github.com/alanyoungcy/brandit/internal/notify"
)

// Notifier sends operator alerts.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}

// LockConfig controls how services wait for per-key locks.
type LockConfig struct {
	TTL      time.Duration
	RetryMin time.Duration
	RetryMax time.Duration
}

func (c LockConfig) withDefaults() LockConfig {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Second
	}
	if c.RetryMin <= 0 {
		c.RetryMin = 5 * time.Millisecond
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 100 * time.Millisecond
	}
	return c
}

// acquire takes key on locks, backing off while another holder owns it until
// ctx is done.
func acquire(ctx context.Context, locks domain.LockManager, cfg LockConfig, key string) (func(), error) {
	wait := cfg.RetryMin
	for {
		unlock, err := locks.Acquire(ctx, key, cfg.TTL)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-t.C:
		}
		wait *= 2
		if wait > cfg.RetryMax {
			wait = cfg.RetryMax
		}
	}
}

// publish marshals v onto channel. Failures are logged, never returned: the
// bus is best effort.
func publish(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel string, v any) {
	if bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		logger.WarnContext(ctx, "marshal event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := bus.Publish(ctx, channel, payload); err != nil {
		logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

func audit(ctx context.Context, store domain.AuditStore, logger *slog.Logger, event string, detail map[string]any) {
	if store == nil {
		return
	}
	if err := store.Log(ctx, event, detail); err != nil {
		logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func alert(ctx context.Context, n Notifier, logger *slog.Logger, msg notify.Message) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		logger.WarnContext(ctx, "notify failed",
			slog.String("event", msg.Event),
			slog.String("error", err.Error()),
		)
	}
}
