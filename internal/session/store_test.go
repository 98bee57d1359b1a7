package session

import (
	"context"
	"sync"
	"testing"
	"time"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// fakeClock is a settable time source for idle expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStore_CreateGetDelete(t *testing.T) {
	// given
	store := newTestStore(t, nil)

	// when
	sess := store.Create()

	// then
	got, err := store.Get(sess.ID())
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(sess.ID()))
	assert.Equal(t, 0, store.Len())

	_, err = store.Get(sess.ID())
	assert.ErrorIs(t, err, sferrors.ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(sess.ID()), sferrors.ErrSessionNotFound)
}

func TestStore_GetOrCreate(t *testing.T) {
	store := newTestStore(t, nil)
	existing := store.Create()

	testCases := []struct {
		name          string
		id            uuid.UUID
		expectCreated bool
	}{
		{name: "known id", id: existing.ID(), expectCreated: false},
		{name: "unknown id", id: uuid.New(), expectCreated: true},
		{name: "nil id", id: uuid.Nil, expectCreated: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			sess, created := store.GetOrCreate(tc.id)

			// then
			assert.Equal(t, tc.expectCreated, created)
			if tc.expectCreated {
				assert.NotEqual(t, tc.id, sess.ID(), "a new session never adopts a client-chosen id")
			} else {
				assert.Same(t, existing, sess)
			}
		})
	}
}

func TestStore_Sweep(t *testing.T) {
	// given
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	store, err := NewStore(Config{AlertTTL: time.Minute, IdleTimeout: 30 * time.Minute}, nil, discardLogger())
	require.NoError(t, err)
	defer store.closeAll()
	store.deps.now = clock.Now

	idle := store.Create()
	active := store.Create()

	// when
	clock.Advance(20 * time.Minute)
	_, err = store.Get(active.ID())
	require.NoError(t, err)
	clock.Advance(15 * time.Minute)
	evicted := store.Sweep()

	// then
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, store.Len())
	_, err = store.Get(idle.ID())
	assert.ErrorIs(t, err, sferrors.ErrSessionNotFound)
	_, err = store.Get(active.ID())
	assert.NoError(t, err)
}

func TestStore_GetRacingSweep(t *testing.T) {
	for range 200 {
		// given
		clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
		store, err := NewStore(Config{AlertTTL: time.Minute, IdleTimeout: 30 * time.Minute}, nil, discardLogger())
		require.NoError(t, err)
		store.deps.now = clock.Now
		sess := store.Create()
		clock.Advance(31 * time.Minute)

		// when
		var getErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, getErr = store.Get(sess.ID())
		}()
		go func() {
			defer wg.Done()
			store.Sweep()
		}()
		wg.Wait()

		// then
		if getErr == nil {
			require.Equal(t, 1, store.Len(), "a session handed out by Get must not be evicted by the same sweep")
		} else {
			require.ErrorIs(t, getErr, sferrors.ErrSessionNotFound)
			require.Zero(t, store.Len())
		}
		store.closeAll()
	}
}

func TestStore_SweepDisabled(t *testing.T) {
	store := newTestStore(t, nil)
	store.Create()

	assert.Zero(t, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestStore_RunStopsOnCancel(t *testing.T) {
	store, err := NewStore(Config{AlertTTL: time.Minute, IdleTimeout: time.Nanosecond, SweepInterval: 5 * time.Millisecond}, nil, discardLogger())
	require.NoError(t, err)
	store.Create()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- store.Run(ctx) }()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	store.Create()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, store.Len(), "remaining sessions are closed on shutdown")
}

func TestStore_Counters(t *testing.T) {
	// given
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	sess := newTestStore(t, nil).Create()
	ctx := context.Background()

	// when
	_, _ = sess.Dispatch(ctx, AddToCart{Product: product(1, "1.00")})
	_, _ = sess.Dispatch(ctx, AddToCart{Product: product(1, "1.00")})
	_, _ = sess.Dispatch(ctx, AddToCart{Product: product(2, "1.00")})
	_, _ = sess.Dispatch(ctx, RemoveFromCart{ProductID: 2})
	_, _ = sess.Dispatch(ctx, RemoveFromCart{ProductID: 2})

	// then
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["cart_items_added"])
	assert.Equal(t, int64(1), sums["cart_duplicate_adds"])
	assert.Equal(t, int64(1), sums["cart_items_removed"], "removing an absent product is not counted")
	assert.Equal(t, int64(4), sums["alerts_cleared"], "each new alert replaces the previous one")
}
