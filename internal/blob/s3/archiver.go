package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// ProductLister is the read access the archiver needs.
type ProductLister interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Product, error)
}

// ArchiverConfig tunes how archives are uploaded.
type ArchiverConfig struct {
	// MultipartThreshold switches to a multipart upload for archives of at
	// least this many bytes. Zero disables multipart uploads.
	MultipartThreshold int64
	PartSize           int64
	// PageSize is how many products are read per List call.
	PageSize int
}

// PriceHistoryArchiver implements domain.PriceArchiver. It writes every price
// point older than the cutoff as JSONL and records the run in the audit log.
// Points are copied, never removed: price history stays append-only in the
// primary store.
type PriceHistoryArchiver struct {
	writer   domain.BlobWriter
	products ProductLister
	audit    domain.AuditStore
	cfg      ArchiverConfig
}

// NewArchiver creates a PriceHistoryArchiver.
func NewArchiver(writer domain.BlobWriter, products ProductLister, audit domain.AuditStore, cfg ArchiverConfig) *PriceHistoryArchiver {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	return &PriceHistoryArchiver{writer: writer, products: products, audit: audit, cfg: cfg}
}

// ArchivePriceHistory uploads points strictly before the cutoff to
// archive/price_history/YYYY-MM-DD.jsonl and returns how many were written.
func (a *PriceHistoryArchiver) ArchivePriceHistory(ctx context.Context, before time.Time) (int64, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	var count int64

	for offset := 0; ; offset += a.cfg.PageSize {
		products, err := a.products.List(ctx, domain.ListOpts{Limit: a.cfg.PageSize, Offset: offset})
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive list products: %w", err)
		}
		for _, p := range products {
			for _, pt := range p.PriceHistory {
				if !pt.Timestamp.Before(before) {
					continue
				}
				if err := enc.Encode(domain.ArchivedPricePoint{
					ProductID: p.ID,
					Price:     pt.Price,
					Timestamp: pt.Timestamp,
					Event:     pt.Event,
				}); err != nil {
					return 0, fmt.Errorf("s3blob: archive encode %s: %w", p.ID, err)
				}
				count++
			}
		}
		if len(products) < a.cfg.PageSize {
			break
		}
	}
	if count == 0 {
		return 0, nil
	}

	path := ArchivePath("price_history", before)
	size := int64(buf.Len())
	if a.cfg.MultipartThreshold > 0 && size >= a.cfg.MultipartThreshold {
		if err := a.writer.PutMultipart(ctx, path, &buf, a.cfg.PartSize); err != nil {
			return 0, fmt.Errorf("s3blob: archive upload: %w", err)
		}
	} else {
		if err := a.writer.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
			return 0, fmt.Errorf("s3blob: archive upload: %w", err)
		}
	}

	if err := a.audit.Log(ctx, "archive.price_history", map[string]any{
		"path":   path,
		"count":  count,
		"bytes":  size,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive audit log: %w", err)
	}
	return count, nil
}

// ArchivePath builds the object path of an archive, partitioned by the day
// of the cutoff.
//
//	archive/price_history/2025-01-31.jsonl
func ArchivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.UTC().Format("2006-01-02"))
}

var _ domain.PriceArchiver = (*PriceHistoryArchiver)(nil)
