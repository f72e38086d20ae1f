package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader reads objects back from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// ArchivedPricePoint is one line of a price-history archive.
type ArchivedPricePoint struct {
	ProductID string     `json:"product_id"`
	Price     float64    `json:"price"`
	Timestamp time.Time  `json:"timestamp"`
	Event     PriceEvent `json:"event"`
}

// PriceArchiver copies price history older than a cutoff to cold storage and
// reports how many points it wrote.
type PriceArchiver interface {
	ArchivePriceHistory(ctx context.Context, before time.Time) (int64, error)
}
