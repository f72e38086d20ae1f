package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/brandit/internal/domain"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return Wrap(rdb, "brandit:"), mr
}

func TestLockManager(t *testing.T) {
	c, mr := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "product:p1", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("brandit:lock:product:p1"))

	_, err = lm.Acquire(ctx, "product:p1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	unlock()
	unlock()
	assert.False(t, mr.Exists("brandit:lock:product:p1"))

	again, err := lm.Acquire(ctx, "product:p1", time.Minute)
	require.NoError(t, err)
	again()
}

func TestLockManager_ExpiredHolderCannotReleaseNewLock(t *testing.T) {
	c, mr := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	stale, err := lm.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := lm.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	defer fresh()

	stale()
	assert.True(t, mr.Exists("brandit:lock:k"), "stale unlock must not delete the new holder's key")
}

func TestPriceCache(t *testing.T) {
	c, mr := newTestClient(t)
	pc := NewPriceCache(c, time.Hour)
	ctx := context.Background()
	ts := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	_, err := pc.GetQuote(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	q := domain.PriceQuote{ProductID: "p1", Price: 104.5, CrashSale: true, UpdatedAt: ts}
	require.NoError(t, pc.SetQuote(ctx, q))
	assert.Equal(t, time.Hour, mr.TTL("brandit:price:p1"))

	got, err := pc.GetQuote(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, q, got)

	require.NoError(t, pc.SetQuote(ctx, domain.PriceQuote{ProductID: "p2", Price: 7, UpdatedAt: ts}))
	all, err := pc.GetQuotes(ctx, []string{"p1", "p2", "missing"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 7.0, all["p2"].Price)

	require.NoError(t, pc.Invalidate(ctx, "p1"))
	_, err = pc.GetQuote(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRateLimiter(t *testing.T) {
	c, _ := newTestClient(t)
	rl := NewRateLimiter(c)
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
		now = now.Add(time.Millisecond)
	}

	ok, err := rl.Allow(ctx, "1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = rl.Allow(ctx, "5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	now = now.Add(2 * time.Minute)
	ok, err = rl.Allow(ctx, "1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "window slides")
}

func TestSignalBus(t *testing.T) {
	c, _ := newTestClient(t)
	bus := NewSignalBus(c)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, domain.ChannelPrices)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), domain.ChannelPrices, []byte(`{"id":"p1"}`)))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"id":"p1"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	cancel()
	for range ch {
	}
}
