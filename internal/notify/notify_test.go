package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name string
	err  error
	got  []Message
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.got = append(r.got, msg)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifier_FiltersEvents(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventCrashSale, " "}, discardLogger())

	require.NoError(t, n.Notify(context.Background(), Message{Event: EventLevelUp, Title: "x"}))
	require.NoError(t, n.Notify(context.Background(), Message{Event: EventCrashSale, Title: "y"}))

	require.Len(t, s.got, 1)
	assert.Equal(t, "y", s.got[0].Title)
	assert.False(t, n.Enabled(EventSkillUnlocked))
}

func TestNotifier_NoFilterSendsAll(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, discardLogger())

	require.NoError(t, n.Notify(context.Background(), Message{Event: EventSkillUnlocked}))
	assert.Len(t, s.got, 1)
}

func TestNotifier_NilAndEmpty(t *testing.T) {
	var n *Notifier
	assert.False(t, n.Enabled(EventCrashSale))
	assert.NoError(t, n.Notify(context.Background(), Message{Event: EventCrashSale}))

	empty := NewNotifier(nil, nil, discardLogger())
	assert.False(t, empty.Enabled(EventCrashSale))
}

func TestNotifier_JoinsFailures(t *testing.T) {
	boom := errors.New("boom")
	bad := &recordingSender{name: "bad", err: boom}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), Message{Event: EventCrashSale})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad")
	assert.Len(t, good.got, 1, "later senders still run")
}

func TestDiscordSender(t *testing.T) {
	var payload discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscordSender(srv.URL)
	err := d.Send(context.Background(), Message{
		Event:  EventCrashSale,
		Title:  "Crash sale",
		Body:   "Hoodie crashed",
		Fields: map[string]string{"price": "500.00", "id": "p1"},
	})
	require.NoError(t, err)

	require.Len(t, payload.Embeds, 1)
	e := payload.Embeds[0]
	assert.Equal(t, "Crash sale", e.Title)
	assert.Equal(t, 0xE74C3C, e.Color)
	require.Len(t, e.Fields, 2)
	assert.Equal(t, "id", e.Fields[0].Name)
}

func TestDiscordSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), Message{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord: unexpected status 400")
}

func TestTelegramSender(t *testing.T) {
	var (
		path string
		body map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL+"/", "tok", "42")
	require.NoError(t, s.Send(context.Background(), Message{
		Title:  "Level up",
		Body:   "Python reached level 2",
		Fields: map[string]string{"player": "ada"},
	}))

	assert.Equal(t, "/bottok/sendMessage", path)
	assert.Equal(t, "42", body["chat_id"])
	assert.Equal(t, "Markdown", body["parse_mode"])
	assert.Equal(t, "*Level up*\nPython reached level 2\nplayer: ada", body["text"])
}

func TestTelegramSender_DefaultBaseURL(t *testing.T) {
	assert.Equal(t, telegramAPI, NewTelegramSender("", "t", "c").baseURL)
}
