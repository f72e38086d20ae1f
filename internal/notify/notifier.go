// Package notify fans alerts out to chat webhooks. Each alert carries an
// event name so operators can subscribe to the events they care about.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Event names raised by the services.
const (
	EventCrashSale       = "crash_sale"
	EventManualCrashSale = "manual_crash_sale"
	EventLevelUp         = "level_up"
	EventSkillUnlocked   = "skill_unlocked"
)

// Message is one alert.
type Message struct {
	Event  string
	Title  string
	Body   string
	Fields map[string]string
}

// Sender delivers messages to one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// Notifier dispatches to every Sender. With a non-empty event filter only the
// listed events are forwarded.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. An empty events list lets everything through.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether msgs for event would be sent anywhere.
func (n *Notifier) Enabled(event string) bool {
	if n == nil || len(n.senders) == 0 {
		return false
	}
	return len(n.events) == 0 || n.events[event]
}

// Notify sends msg to every sender. A failing sender does not stop delivery
// to the rest; all failures are joined into the returned error.
func (n *Notifier) Notify(ctx context.Context, msg Message) error {
	if !n.Enabled(msg.Event) {
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, msg); err != nil {
			n.logger.ErrorContext(ctx, "notify: sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", msg.Event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notify: sent",
			slog.String("sender", s.Name()),
			slog.String("event", msg.Event),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// text renders the body followed by sorted "key: value" lines.
func (m Message) text() string {
	if len(m.Fields) == 0 {
		return m.Body
	}
	var b strings.Builder
	b.WriteString(m.Body)
	for _, k := range sortedFieldKeys(m.Fields) {
		fmt.Fprintf(&b, "\n%s: %s", k, m.Fields[k])
	}
	return b.String()
}
