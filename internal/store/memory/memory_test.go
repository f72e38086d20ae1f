package memory

import (
	"context"
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

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestProductStore(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore()

	p := domain.Product{ID: "a", Name: "A", BasePrice: 10, MaxRetailPrice: 20, CurrentPrice: 10, CreatedAt: t0}
	require.NoError(t, s.Create(ctx, p))
	assert.ErrorIs(t, s.Create(ctx, p), domain.ErrAlreadyExists)
	require.NoError(t, s.Create(ctx, domain.Product{ID: "b", Name: "B", CreatedAt: t0.Add(time.Hour)}))

	got, err := s.GetByID(ctx, "a")
	require.NoError(t, err)
	got.PriceHistory = append(got.PriceHistory, domain.PricePoint{Price: 11})
	got.CurrentPrice = 11
	require.NoError(t, s.Save(ctx, got))

	// Mutating the caller's copy after Save must not leak into the store.
	got.PriceHistory[0].Price = 999
	again, err := s.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 11.0, again.PriceHistory[0].Price)

	assert.ErrorIs(t, s.Save(ctx, domain.Product{ID: "zzz"}), domain.ErrNotFound)

	list, err := s.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)

	list, err = s.List(ctx, domain.ListOpts{Offset: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, s.Delete(ctx, "a"))
	assert.ErrorIs(t, s.Delete(ctx, "a"), domain.ErrNotFound)
	_, err = s.GetByID(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderStore(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore()
	s.now = func() time.Time { return t0.Add(time.Hour) }

	require.NoError(t, s.Create(ctx, domain.Order{ID: "o1", UserID: "u", CreatedAt: t0, PaymentStatus: domain.PaymentStatusPending}))
	require.NoError(t, s.Create(ctx, domain.Order{ID: "o2", UserID: "u", CreatedAt: t0.Add(time.Minute)}))
	require.NoError(t, s.Create(ctx, domain.Order{ID: "o3", UserID: "other", CreatedAt: t0}))

	require.NoError(t, s.MarkPaid(ctx, "o1", "pay_1"))
	assert.ErrorIs(t, s.MarkPaid(ctx, "o1", "pay_2"), domain.ErrAlreadyPaid)
	assert.ErrorIs(t, s.MarkPaid(ctx, "nope", "x"), domain.ErrNotFound)

	o, err := s.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, o.PaymentStatus)
	assert.Equal(t, "pay_1", o.GatewayPaymentID)
	assert.Equal(t, t0.Add(time.Hour), o.UpdatedAt)

	list, err := s.ListByUser(ctx, "u", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "o2", list[0].ID, "newest first")
}

func TestProfileStore_CopiesState(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore()

	_, err := s.Get(ctx, "u")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p := domain.Profile{
		ID:       "u",
		Player:   domain.PlayerState{Stats: map[string]int{"Focus": 5}},
		Subjects: map[string]*domain.SubjectState{"Go": {Name: "Go", Ledger: domain.NewLedger()}},
	}
	require.NoError(t, s.Save(ctx, p))
	p.Player.Stats["Focus"] = 50
	p.Subjects["Go"].Ledger.Level = 9

	got, err := s.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Player.Stats["Focus"])
	assert.Equal(t, 1, got.Subjects["Go"].Ledger.Level)
}

func TestAuditStore(t *testing.T) {
	ctx := context.Background()
	s := NewAuditStore()

	require.NoError(t, s.Log(ctx, "first", map[string]any{"n": 1}))
	require.NoError(t, s.Log(ctx, "second", nil))

	entries, err := s.List(ctx, domain.ListOpts{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0].Event)
	assert.EqualValues(t, 2, entries[0].ID)
}

func TestLockManager(t *testing.T) {
	ctx := context.Background()
	lm := NewLockManager()
	now := t0
	lm.now = func() time.Time { return now }

	unlock, err := lm.Acquire(ctx, "p1", time.Second)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "p1", time.Second)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	_, err = lm.Acquire(ctx, "p2", time.Second)
	assert.NoError(t, err, "keys are independent")

	// Once the lease expires another holder may take it, and the stale
	// unlock must leave the new lease alone.
	now = now.Add(2 * time.Second)
	fresh, err := lm.Acquire(ctx, "p1", time.Second)
	require.NoError(t, err)
	unlock()
	_, err = lm.Acquire(ctx, "p1", time.Second)
	assert.ErrorIs(t, err, domain.ErrLockHeld)
	fresh()

	_, err = lm.Acquire(ctx, "p1", time.Second)
	assert.NoError(t, err)
}

func TestSignalBus(t *testing.T) {
	bus := NewSignalBus(4)
	ctx, cancel := context.WithCancel(context.Background())

	a, err := bus.Subscribe(ctx, domain.ChannelPrices)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx, domain.ChannelPrices)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.ChannelPrices}, bus.Channels())

	require.NoError(t, bus.Publish(ctx, domain.ChannelPrices, []byte("x")))
	require.NoError(t, bus.Publish(ctx, domain.ChannelTracker, []byte("ignored")))

	assert.Equal(t, []byte("x"), <-a)
	assert.Equal(t, []byte("x"), <-b)

	cancel()
	for range a {
	}
	for range b {
	}
	assert.Empty(t, bus.Channels())
}

func TestPriceCache(t *testing.T) {
	ctx := context.Background()
	c := NewPriceCache()

	_, err := c.GetQuote(ctx, "p")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, c.SetQuote(ctx, domain.PriceQuote{ProductID: "p", Price: 3}))
	quotes, err := c.GetQuotes(ctx, []string{"p", "q"})
	require.NoError(t, err)
	assert.Len(t, quotes, 1)

	require.NoError(t, c.Invalidate(ctx, "p"))
	_, err = c.GetQuote(ctx, "p")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
