package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/brandit/internal/queue"
)

// QueueStats exposes the purchase dispatcher counters.
type QueueStats interface {
	Stats() queue.Stats
}

// StatusHandler serves the runtime status of the service.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	queue     QueueStats
}

// NewStatusHandler creates a StatusHandler. q may be nil.
func NewStatusHandler(mode string, startedAt time.Time, q QueueStats) *StatusHandler {
	return &StatusHandler{mode: mode, startedAt: startedAt, queue: q}
}

// GetStatus responds with the mode, uptime and purchase queue counters.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"mode":           h.mode,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if h.queue != nil {
		body["purchase_queue"] = h.queue.Stats()
	}
	writeJSON(w, http.StatusOK, body)
}
