package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// ArchiveService lists and triggers price history archives.
type ArchiveService interface {
	List(ctx context.Context, kind string) ([]domain.BlobInfo, error)
	RunOnce(ctx context.Context) (int64, error)
	ArchiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArchiveHandler serves the admin archive endpoints.
type ArchiveHandler struct {
	archives ArchiveService
	logger   *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler.
func NewArchiveHandler(archives ArchiveService, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archives: archives, logger: logHandler(logger, "archive")}
}

// ListArchives lists archived objects.
// GET /api/admin/archives?kind=price_history
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	infos, err := h.archives.List(r.Context(), r.URL.Query().Get("kind"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list archives")
		return
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"archives": infos})
}

// RunArchive archives now. An optional ?before=RFC3339 overrides the
// retention cutoff.
// POST /api/admin/archives/run
func (h *ArchiveHandler) RunArchive(w http.ResponseWriter, r *http.Request) {
	var (
		n   int64
		err error
	)
	if v := r.URL.Query().Get("before"); v != "" {
		cutoff, perr := time.Parse(time.RFC3339, v)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "before must be RFC 3339")
			return
		}
		n, err = h.archives.ArchiveBefore(r.Context(), cutoff)
	} else {
		n, err = h.archives.RunOnce(r.Context())
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err, "archive run failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"archived_points": n})
}
