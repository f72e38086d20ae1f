package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/brandit/internal/domain"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrNotFound:                          http.StatusNotFound,
		fmt.Errorf("x: %w", domain.ErrInvalidOrder): http.StatusBadRequest,
		domain.ErrInvalidSignature:                  http.StatusBadRequest,
		domain.ErrSkillLocked:                       http.StatusConflict,
		domain.ErrInsufficientPoints:                http.StatusConflict,
		domain.ErrUnauthorized:                      http.StatusUnauthorized,
		context.DeadlineExceeded:                    http.StatusServiceUnavailable,
		errors.New("boom"):                          http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}

func TestParseListOpts(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=9999&offset=-3&since=2025-01-02T03:04:05Z", nil)
	opts := parseListOpts(r)
	assert.Equal(t, 500, opts.Limit)
	assert.Zero(t, opts.Offset)
	require.NotNil(t, opts.Since)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), opts.Since.UTC())

	opts = parseListOpts(httptest.NewRequest(http.MethodGet, "/?limit=abc&offset=7", nil))
	assert.Equal(t, 50, opts.Limit)
	assert.Equal(t, 7, opts.Offset)
	assert.Nil(t, opts.Since)
}

func TestProfileID(t *testing.T) {
	assert.Equal(t, defaultProfileID, profileID(httptest.NewRequest(http.MethodGet, "/", nil)))

	r := httptest.NewRequest(http.MethodGet, "/?player=ada", nil)
	r.Header.Set("X-Player-ID", "bob")
	assert.Equal(t, "ada", profileID(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Player-ID", " bob ")
	assert.Equal(t, "bob", profileID(r))
}

func TestHealthCheck_Degraded(t *testing.T) {
	h := NewHealthHandler(map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}, discard())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "connection refused"}, body.Dependencies)
}

type stubArchives struct {
	cutoff time.Time
	ran    bool
}

func (s *stubArchives) List(context.Context, string) ([]domain.BlobInfo, error) { return nil, nil }

func (s *stubArchives) RunOnce(context.Context) (int64, error) {
	s.ran = true
	return 3, nil
}

func (s *stubArchives) ArchiveBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return 1, nil
}

func TestArchiveHandler(t *testing.T) {
	stub := &stubArchives{}
	h := NewArchiveHandler(stub, discard())

	rec := httptest.NewRecorder()
	h.RunArchive(rec, httptest.NewRequest(http.MethodPost, "/api/admin/archives/run?before=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.RunArchive(rec, httptest.NewRequest(http.MethodPost, "/api/admin/archives/run?before=2025-02-01T00:00:00Z", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), stub.cutoff.UTC())
	assert.JSONEq(t, `{"archived_points":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.RunArchive(rec, httptest.NewRequest(http.MethodPost, "/api/admin/archives/run", nil))
	assert.True(t, stub.ran)

	rec = httptest.NewRecorder()
	h.ListArchives(rec, httptest.NewRequest(http.MethodGet, "/api/admin/archives", nil))
	assert.JSONEq(t, `{"archives":[]}`, rec.Body.String())
}
