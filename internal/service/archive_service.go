package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// ArchiveService copies old price history to cold storage and lists what has
// been archived.
type ArchiveService struct {
	archiver  domain.PriceArchiver
	reader    domain.BlobReader
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewArchiveService creates an ArchiveService. Points older than retention
// are archived by RunOnce. reader may be nil when listing is not needed.
func NewArchiveService(archiver domain.PriceArchiver, reader domain.BlobReader, retention time.Duration, logger *slog.Logger) *ArchiveService {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &ArchiveService{
		archiver:  archiver,
		reader:    reader,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With(slog.String("component", "archive_service")),
	}
}

// WithClock replaces the clock that sets the cutoff.
func (s *ArchiveService) WithClock(now func() time.Time) *ArchiveService {
	s.now = now
	return s
}

// RunOnce archives every point older than now minus retention.
func (s *ArchiveService) RunOnce(ctx context.Context) (int64, error) {
	return s.ArchiveBefore(ctx, s.now().Add(-s.retention))
}

// ArchiveBefore archives every point strictly before cutoff.
func (s *ArchiveService) ArchiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	n, err := s.archiver.ArchivePriceHistory(ctx, cutoff)
	if err != nil {
		return n, fmt.Errorf("archive_service: archive before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	s.logger.InfoContext(ctx, "price history archived",
		slog.Int64("points", n),
		slog.String("cutoff", cutoff.Format(time.RFC3339)),
		slog.Duration("took", time.Since(start)),
	)
	return n, nil
}

// Run archives on every tick until ctx is done.
func (s *ArchiveService) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "scheduled archive failed", slog.String("error", err.Error()))
			}
		}
	}
}

// List returns archived objects of kind, for example "price_history".
func (s *ArchiveService) List(ctx context.Context, kind string) ([]domain.BlobInfo, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("archive_service: list: %w", domain.ErrNotFound)
	}
	prefix := "archive/"
	if kind = strings.Trim(kind, "/"); kind != "" {
		prefix += kind + "/"
	}
	infos, err := s.reader.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("archive_service: list %s: %w", prefix, err)
	}
	return infos, nil
}
