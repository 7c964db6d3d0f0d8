package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-priority/internal/events"
	"github.com/spec-kit/ticket-priority/internal/observability"
	"github.com/spec-kit/ticket-priority/pkg/util/errorutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
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

func testSettings() Settings {
	return Settings{TTL: time.Minute, MaxWait: 2 * time.Second, PollInterval: 10 * time.Millisecond}
}

func foreignEntry(t *testing.T, status, fetchID string, payload []byte) []byte {
	t.Helper()
	raw, err := cbor.Marshal(entry{Status: status, FetchID: fetchID, Payload: payload})
	require.NoError(t, err)
	return raw
}

func TestCoordinator_Fetch_RunsUpstreamOnce_When_CallersOverlap(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(testSettings(), Dependencies{})

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("tickets"), nil
	}

	const callers = 16
	results := make([]Result, callers)
	errs := make([]error, callers)
	var started, finished sync.WaitGroup
	started.Add(callers)
	finished.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer finished.Done()
			started.Done()
			results[i], errs[i] = c.Fetch(context.Background(), "tickets", fetch)
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	finished.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("tickets"), results[i].Payload)
		assert.Equal(t, results[0].FetchID, results[i].FetchID)
	}
	assert.NotEmpty(t, results[0].FetchID)
}

func TestCoordinator_Fetch_ServesCache_Until_TTLExpires(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewMemoryStoreWithClock(clock.Now)
	c := NewCoordinator(testSettings(), Dependencies{Store: store, Now: clock.Now})

	var calls atomic.Int32
	fetch := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("actions"), nil
	}

	first, err := c.Fetch(context.Background(), "actions", fetch)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	clock.Advance(30 * time.Second)
	second, err := c.Fetch(context.Background(), "actions", fetch)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.FetchID, second.FetchID)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(31 * time.Second)
	third, err := c.Fetch(context.Background(), "actions", fetch)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.NotEqual(t, first.FetchID, third.FetchID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCoordinator_Fetch_ReturnsUpstreamError_And_LeavesCacheEmpty(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	metrics := observability.NewMetrics()
	c := NewCoordinator(testSettings(), Dependencies{Store: store, Metrics: metrics})

	boom := errors.New("connection reset")
	var calls atomic.Int32
	fetch := func(ctx context.Context) ([]byte, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return []byte("ok"), nil
	}

	_, err := c.Fetch(context.Background(), "tickets", fetch)
	require.Error(t, err)
	assert.ErrorIs(t, err, errorutil.ErrUpstream)
	assert.ErrorIs(t, err, boom)

	_, found, err := store.Get(context.Background(), storeKey("tickets"))
	require.NoError(t, err)
	assert.False(t, found)

	res, err := c.Fetch(context.Background(), "tickets", fetch)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), res.Payload)
	assert.Equal(t, int32(2), calls.Load())

	snap := metrics.Snapshot()
	assert.Equal(t, int64(2), snap.Fetches["tickets"])
	assert.Equal(t, int64(1), snap.FetchFailures["tickets"])
}

func TestCoordinator_Fetch_TimesOut_When_AnotherProcessHoldsTheMarker(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), storeKey("tickets"),
		foreignEntry(t, statusLoading, "other-process", nil), time.Minute))

	settings := testSettings()
	settings.MaxWait = 80 * time.Millisecond
	c := NewCoordinator(settings, Dependencies{Store: store})

	var calls atomic.Int32
	_, err := c.Fetch(context.Background(), "tickets", func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return nil, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errorutil.ErrTimeout)
	assert.Equal(t, int32(0), calls.Load())
}

func TestCoordinator_Fetch_PicksUpForeignResult_When_MarkerCompletes(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	key := storeKey("tickets")
	require.NoError(t, store.Set(context.Background(), key,
		foreignEntry(t, statusLoading, "fetch-42", nil), time.Minute))

	done := foreignEntry(t, statusDone, "fetch-42", []byte("remote"))
	go func() {
		time.Sleep(40 * time.Millisecond)
		_ = store.Set(context.Background(), key, done, time.Minute)
	}()

	c := NewCoordinator(testSettings(), Dependencies{Store: store})
	res, err := c.Fetch(context.Background(), "tickets", func(ctx context.Context) ([]byte, error) {
		t.Error("upstream must not be called while another process is loading")
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "fetch-42", res.FetchID)
	assert.Equal(t, []byte("remote"), res.Payload)
}

func TestCoordinator_Fetch_KeepsSharedFetchRunning_When_CallerGivesUp(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(testSettings(), Dependencies{})

	release := make(chan struct{})
	var calls atomic.Int32
	var fetchCanceled atomic.Bool
	fetch := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		fetchCanceled.Store(ctx.Err() != nil)
		return []byte("late"), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Fetch(ctx, "tickets", fetch)
	require.Error(t, err)
	assert.ErrorIs(t, err, errorutil.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	res, err := c.Fetch(context.Background(), "tickets", fetch)
	require.NoError(t, err)
	assert.Equal(t, []byte("late"), res.Payload)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, fetchCanceled.Load())
}

func TestCoordinator_Fetch_PublishesRefreshEvents(t *testing.T) {
	t.Parallel()

	dispatcher := events.NewInMemoryDispatcher()
	var got []events.Event
	var mu sync.Mutex
	record := func(ctx context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		return nil
	}
	dispatcher.Subscribe(events.EventDatasetRefreshed, record)
	dispatcher.Subscribe(events.EventDatasetFetchFailed, record)

	c := NewCoordinator(testSettings(), Dependencies{Dispatcher: dispatcher})

	_, err := c.Fetch(context.Background(), "actions", func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("down")
	})
	require.Error(t, err)
	res, err := c.Fetch(context.Background(), "actions", func(ctx context.Context) ([]byte, error) {
		return []byte("rows"), nil
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, events.EventDatasetFetchFailed, got[0].Type)
	assert.Equal(t, events.EventDatasetRefreshed, got[1].Type)
	assert.Equal(t, "actions", got[1].Dataset)
	payload, ok := got[1].Payload.(events.DatasetRefreshedPayload)
	require.True(t, ok)
	assert.Equal(t, res.FetchID, payload.FetchID)
	assert.Equal(t, 4, payload.Bytes)
}

func TestCoordinator_Invalidate_ForcesNewFetch(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(testSettings(), Dependencies{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("x"), nil
	}

	_, err := c.Fetch(context.Background(), "movements", fetch)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(context.Background(), "movements"))
	_, err = c.Fetch(context.Background(), "movements", fetch)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

type row struct {
	ID   int64
	Name *string
}

func TestFetch_DecodesOwnedCopies(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(testSettings(), Dependencies{})
	name := "Dupont"
	load := func(ctx context.Context) ([]row, error) {
		return []row{{ID: 1, Name: &name}, {ID: 2}}, nil
	}

	first, id1, err := Fetch(context.Background(), c, "rows", load)
	require.NoError(t, err)
	first[0].ID = 99

	second, id2, err := Fetch(context.Background(), c, "rows", load)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	require.Len(t, second, 2)
	assert.Equal(t, int64(1), second[0].ID)
	require.NotNil(t, second[0].Name)
	assert.Equal(t, "Dupont", *second[0].Name)
	assert.Nil(t, second[1].Name)
}

func TestCoordinator_Fetch_Refetches_When_StaleLoadingMarkerExpires(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewMemoryStoreWithClock(clock.Now)
	require.NoError(t, store.Set(context.Background(), storeKey("tickets"),
		foreignEntry(t, statusLoading, "crashed", nil), time.Minute))
	clock.Advance(time.Minute)

	c := NewCoordinator(testSettings(), Dependencies{Store: store, Now: clock.Now})

	var calls atomic.Int32
	res, err := c.Fetch(context.Background(), "tickets", func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("fresh"), nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []byte("fresh"), res.Payload)
	assert.NotEqual(t, "crashed", res.FetchID)
	assert.NotEmpty(t, res.FetchID)
}

// takeOver lets the marker of the running fetch expire and has another
// loader claim the key, as a replica would when the fetch outlives its TTL.
func takeOver(store *MemoryStore, clock *fakeClock, key string, foreign []byte) error {
	clock.Advance(2 * time.Minute)
	added, err := store.Add(context.Background(), key, foreign, time.Hour)
	if err != nil {
		return err
	}
	if !added {
		return errors.New("key still held by the first loader")
	}
	return nil
}

func TestCoordinator_Fetch_KeepsForeignMarker_When_SlowFetchSucceeds(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewMemoryStoreWithClock(clock.Now)
	key := storeKey("tickets")
	foreign := foreignEntry(t, statusLoading, "replica-b", nil)
	c := NewCoordinator(testSettings(), Dependencies{Store: store, Now: clock.Now})

	res, err := c.Fetch(context.Background(), "tickets", func(ctx context.Context) ([]byte, error) {
		if err := takeOver(store, clock, key, foreign); err != nil {
			return nil, err
		}
		return []byte("late"), nil
	})

	require.NoError(t, err)
	assert.Equal(t, []byte("late"), res.Payload)
	assert.NotEqual(t, "replica-b", res.FetchID)

	raw, found, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, foreign, raw)
}

func TestCoordinator_Fetch_KeepsForeignMarker_When_SlowFetchFails(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewMemoryStoreWithClock(clock.Now)
	key := storeKey("tickets")
	foreign := foreignEntry(t, statusLoading, "replica-b", nil)
	c := NewCoordinator(testSettings(), Dependencies{Store: store, Now: clock.Now})

	boom := errors.New("upstream timeout")
	_, err := c.Fetch(context.Background(), "tickets", func(ctx context.Context) ([]byte, error) {
		if err := takeOver(store, clock, key, foreign); err != nil {
			return nil, err
		}
		return nil, boom
	})

	require.ErrorIs(t, err, errorutil.ErrUpstream)
	require.ErrorIs(t, err, boom)

	raw, found, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, foreign, raw)
}
