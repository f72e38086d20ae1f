package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/brandit/internal/domain"
	"github.com/alanyoungcy/brandit/internal/service"
)

// TrackerService defines the progression actions the tracker handler drives.
type TrackerService interface {
	Profile(ctx context.Context, id string) (domain.Profile, error)
	Study(ctx context.Context, id, subject string) (service.ActionResult, error)
	Practice(ctx context.Context, id, skill string) (service.ActionResult, error)
	Grind(ctx context.Context, id string) (service.ActionResult, error)
	DailyQuest(ctx context.Context, id string) (service.ActionResult, error)
	Allocate(ctx context.Context, id, stat string) (service.ActionResult, error)
}

// defaultProfileID is used when a request names no player.
const defaultProfileID = "default"

// TrackerHandler serves the progression tracker.
type TrackerHandler struct {
	tracker TrackerService
	logger  *slog.Logger
}

// NewTrackerHandler creates a TrackerHandler.
func NewTrackerHandler(tracker TrackerService, logger *slog.Logger) *TrackerHandler {
	return &TrackerHandler{tracker: tracker, logger: logHandler(logger, "tracker")}
}

// profileID reads the player from ?player= or the X-Player-ID header.
func profileID(r *http.Request) string {
	if id := strings.TrimSpace(r.URL.Query().Get("player")); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.Header.Get("X-Player-ID")); id != "" {
		return id
	}
	return defaultProfileID
}

// GetProfile returns the player's profile.
// GET /api/tracker
func (h *TrackerHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.tracker.Profile(r.Context(), profileID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type targetRequest struct {
	Subject string `json:"subject"`
	Skill   string `json:"skill"`
	Stat    string `json:"stat"`
}

// Study runs a study session.
// POST /api/tracker/study {"subject": "Python"}
func (h *TrackerHandler) Study(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Subject == "" {
		writeError(w, http.StatusBadRequest, "subject is required")
		return
	}
	h.respond(w, r, func(ctx context.Context, id string) (service.ActionResult, error) {
		return h.tracker.Study(ctx, id, req.Subject)
	})
}

// Practice trains an unlocked skill.
// POST /api/tracker/practice {"skill": "DSA"}
func (h *TrackerHandler) Practice(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Skill == "" {
		writeError(w, http.StatusBadRequest, "skill is required")
		return
	}
	h.respond(w, r, func(ctx context.Context, id string) (service.ActionResult, error) {
		return h.tracker.Practice(ctx, id, req.Skill)
	})
}

// Grind adds general EXP.
// POST /api/tracker/grind
func (h *TrackerHandler) Grind(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.tracker.Grind)
}

// DailyQuest completes the daily quest.
// POST /api/tracker/daily-quest
func (h *TrackerHandler) DailyQuest(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.tracker.DailyQuest)
}

// Allocate spends a stat point.
// POST /api/tracker/allocate {"stat": "Focus"}
func (h *TrackerHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Stat == "" {
		writeError(w, http.StatusBadRequest, "stat is required")
		return
	}
	h.respond(w, r, func(ctx context.Context, id string) (service.ActionResult, error) {
		return h.tracker.Allocate(ctx, id, req.Stat)
	})
}

func (h *TrackerHandler) respond(w http.ResponseWriter, r *http.Request, action func(context.Context, string) (service.ActionResult, error)) {
	res, err := action(r.Context(), profileID(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "tracker action failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
