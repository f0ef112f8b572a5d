package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/sedori-linebot-go/internal/storage"
	"github.com/garyellow/sedori-linebot-go/internal/triage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func intPtr(v int) *int { return &v }

func sampleSession(userID string, now time.Time) *Session {
	cat := "DVD"
	s := New(userID, now)
	s.ReplaceItem(&Item{
		Name:      "DVD box set",
		Keywords:  []string{"DVD", "box"},
		Category:  &cat,
		PriceLow:  intPtr(1800),
		PriceHigh: intPtr(3500),
	}, now)
	s.SetWeight(0.85, now)
	return s
}

// storeContract runs the behavior every Store backend must share.
func storeContract(t *testing.T, newStore func(clock *fakeClock) Store) {
	t.Run("missing user", func(t *testing.T) {
		store := newStore(newFakeClock())
		got, err := store.Get(context.Background(), "U-none")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("round trip", func(t *testing.T) {
		clock := newFakeClock()
		store := newStore(clock)
		ctx := context.Background()

		want := sampleSession("U1", clock.Now())
		require.NoError(t, store.Save(ctx, want))

		got, err := store.Get(ctx, "U1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "DVD box set", got.Item.Name)
		assert.Equal(t, []string{"DVD", "box"}, got.Item.Keywords)
		low, high, ok := got.Item.PriceRange()
		assert.True(t, ok)
		assert.Equal(t, 1800, low)
		assert.Equal(t, 3500, high)
		require.NotNil(t, got.ShippingWeightKg)
		assert.InDelta(t, 0.85, *got.ShippingWeightKg, 1e-9)
		assert.True(t, got.LastUpdated.Equal(clock.Now()))
	})

	t.Run("expiry and sweep", func(t *testing.T) {
		clock := newFakeClock()
		store := newStore(clock)
		ctx := context.Background()

		require.NoError(t, store.Save(ctx, sampleSession("U-old", clock.Now())))
		clock.Advance(2 * time.Hour)
		require.NoError(t, store.Save(ctx, sampleSession("U-new", clock.Now())))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		// Exactly at the TTL the old session is still alive.
		clock.Advance(4 * time.Hour)
		got, err := store.Get(ctx, "U-old")
		require.NoError(t, err)
		assert.NotNil(t, got)

		clock.Advance(time.Second)
		got, err = store.Get(ctx, "U-old")
		require.NoError(t, err)
		assert.Nil(t, got, "session older than TTL must read as absent")

		removed, err := store.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		n, err = store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("returned session is a copy", func(t *testing.T) {
		clock := newFakeClock()
		store := newStore(clock)
		ctx := context.Background()
		require.NoError(t, store.Save(ctx, sampleSession("U1", clock.Now())))

		got, err := store.Get(ctx, "U1")
		require.NoError(t, err)
		got.SetSize(triage.SizeXL, clock.Now())
		got.Item.Keywords[0] = "changed"

		again, err := store.Get(ctx, "U1")
		require.NoError(t, err)
		assert.Empty(t, again.ShippingSize)
		assert.Equal(t, "DVD", again.Item.Keywords[0])
	})

	t.Run("ping and close", func(t *testing.T) {
		store := newStore(newFakeClock())
		assert.NoError(t, store.Ping(context.Background()))
		assert.NoError(t, store.Close())
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(clock *fakeClock) Store {
		return NewMemoryStore(WithClock(clock.Now), WithTTL(6*time.Hour))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, func(clock *fakeClock) Store {
		db, err := storage.NewTestDB()
		require.NoError(t, err)
		return NewSQLiteStore(db, WithClock(clock.Now))
	})
}

func TestMemoryStore_Len(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, New("U1", clock.Now())))
	clock.Advance(7 * time.Hour)

	assert.Equal(t, 1, store.Len(), "expired sessions stay until swept")
	n, _ := store.Count(ctx)
	assert.Equal(t, 0, n)
	_, _ = store.Sweep(ctx)
	assert.Equal(t, 0, store.Len())
}

func TestSession_EstimateShipping(t *testing.T) {
	now := time.Now()
	s := New("U1", now)
	assert.Equal(t, 770, s.EstimateShipping(), "no item, no size defaults to L")

	s.ReplaceItem(&Item{Name: "DVD box set"}, now)
	assert.Equal(t, 230, s.EstimateShipping())

	s.SetSize(triage.SizeL, now)
	assert.Equal(t, 770, s.EstimateShipping())

	s.SetWeight(12, now)
	assert.Equal(t, 1570, s.EstimateShipping())
}

func TestSession_ReplaceItemKeepsShipping(t *testing.T) {
	now := time.Now()
	s := New("U1", now)
	s.SetSize(triage.SizeM, now)
	s.SetWeight(1.2, now)

	later := now.Add(time.Minute)
	s.ReplaceItem(&Item{Name: "controller"}, later)

	assert.Equal(t, triage.SizeM, s.ShippingSize)
	require.NotNil(t, s.ShippingWeightKg)
	assert.InDelta(t, 1.2, *s.ShippingWeightKg, 1e-9)
	assert.Equal(t, later, s.LastUpdated)
}

func TestItem_PriceRange(t *testing.T) {
	var nilItem *Item
	_, _, ok := nilItem.PriceRange()
	assert.False(t, ok)

	_, _, ok = (&Item{PriceLow: intPtr(1)}).PriceRange()
	assert.False(t, ok, "one bound alone is not a range")
}
