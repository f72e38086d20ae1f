package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/alanyoungcy/brandit/internal/domain"
)

// SignalBus implements domain.SignalBus in process. Publish never blocks: a
// subscriber whose buffer is full misses the message, as with Redis pub/sub
// clients that fall behind.
type SignalBus struct {
	mu     sync.RWMutex
	subs   map[string][]chan []byte
	buffer int
}

// NewSignalBus creates a SignalBus with the given per-subscriber buffer.
func NewSignalBus(buffer int) *SignalBus {
	if buffer <= 0 {
		buffer = 128
	}
	return &SignalBus{subs: make(map[string][]chan []byte), buffer: buffer}
}

// Publish delivers payload to every current subscriber of channel.
func (b *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[channel] {
		select {
		case ch <- slices.Clone(payload):
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber that is removed, and its channel closed,
// when ctx is done.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, b.buffer)

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs[channel] = slices.DeleteFunc(b.subs[channel], func(c chan []byte) bool { return c == ch })
		if len(b.subs[channel]) == 0 {
			delete(b.subs, channel)
		}
		close(ch)
	}()
	return ch, nil
}

// Channels lists channels that currently have subscribers.
func (b *SignalBus) Channels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedKeys(b.subs)
}

var _ domain.SignalBus = (*SignalBus)(nil)
