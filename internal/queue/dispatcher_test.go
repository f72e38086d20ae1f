package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/alanyoungcy/brandit/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingApplier struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
	block chan struct{}
}

func newCountingApplier() *countingApplier {
	return &countingApplier{calls: map[string]int{}, fail: map[string]bool{}}
}

func (c *countingApplier) ApplyPurchase(_ context.Context, id string) (domain.Product, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[id]++
	if c.fail[id] {
		return domain.Product{}, errors.New("boom")
	}
	return domain.Product{ID: id}, nil
}

func (c *countingApplier) count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

func TestDispatcher_ProcessesAll(t *testing.T) {
	a := newCountingApplier()
	d := NewDispatcher(Config{Workers: 4, Buffer: 64}, a, discardLogger())
	d.Start(context.Background())

	for i := 0; i < 50; i++ {
		require.True(t, d.Submit(PurchaseJob{OrderID: "o", ProductID: "p"}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.True(t, d.Drain(ctx))
	d.Stop()

	assert.Equal(t, 50, a.count("p"))
	st := d.Stats()
	assert.EqualValues(t, 50, st.Enqueued)
	assert.EqualValues(t, 50, st.Processed)
	assert.Zero(t, st.Failed)
}

func TestDispatcher_CountsFailures(t *testing.T) {
	a := newCountingApplier()
	a.fail["bad"] = true
	d := NewDispatcher(Config{Workers: 1}, a, discardLogger())
	d.Start(context.Background())

	d.Submit(PurchaseJob{ProductID: "bad"})
	d.Submit(PurchaseJob{ProductID: "good"})
	d.Stop()

	st := d.Stats()
	assert.EqualValues(t, 1, st.Failed)
	assert.EqualValues(t, 1, st.Processed)
}

func TestDispatcher_SubmitIsNonBlocking(t *testing.T) {
	a := newCountingApplier()
	a.block = make(chan struct{})
	d := NewDispatcher(Config{Workers: 1, Buffer: 1}, a, discardLogger())
	d.Start(context.Background())

	// The worker holds one job and the buffer one more; the rest must be
	// rejected immediately rather than wait.
	accepted := 0
	for i := 0; i < 10; i++ {
		if d.Submit(PurchaseJob{ProductID: "p"}) {
			accepted++
		}
	}
	assert.LessOrEqual(t, accepted, 2)
	assert.GreaterOrEqual(t, accepted, 1)
	assert.EqualValues(t, 10-accepted, d.Stats().Rejected)

	close(a.block)
	d.Stop()
	assert.Equal(t, accepted, a.count("p"))
}

func TestDispatcher_StopDrainsAndRejects(t *testing.T) {
	a := newCountingApplier()
	d := NewDispatcher(Config{Workers: 2, Buffer: 100}, a, discardLogger())

	// Jobs queued before the workers start are still applied by Stop.
	for i := 0; i < 20; i++ {
		require.True(t, d.Submit(PurchaseJob{ProductID: "p"}))
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()
	d.Stop()
	d.Stop()

	assert.Equal(t, 20, a.count("p"))
	assert.False(t, d.Submit(PurchaseJob{ProductID: "p"}))
}

func TestDispatcher_DrainTimesOut(t *testing.T) {
	a := newCountingApplier()
	a.block = make(chan struct{})
	d := NewDispatcher(Config{Workers: 1}, a, discardLogger())
	d.Start(context.Background())
	d.Submit(PurchaseJob{ProductID: "p"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.False(t, d.Drain(ctx))

	close(a.block)
	d.Stop()
}
