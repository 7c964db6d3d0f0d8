package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-priority/internal/events"
	"github.com/spec-kit/ticket-priority/pkg/util/errorutil"
)

const (
	statusLoading = "loading"
	statusDone    = "done"
)

var (
	errWaitExceeded     = errors.New("maximum wait exceeded")
	errLoadingElsewhere = errors.New("dataset still loading in another process")
)

// entry is the value stored under a dataset key. A missing key is the
// empty state.
type entry struct {
	Status  string `cbor:"1,keyasint"`
	FetchID string `cbor:"2,keyasint"`
	Payload []byte `cbor:"3,keyasint,omitempty"`
}

// FetchFunc performs the expensive upstream query for one dataset.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Result is what every caller of Fetch receives for a dataset.
type Result struct {
	Payload []byte
	FetchID string
	Cached  bool
}

// Recorder receives cache counters.
type Recorder interface {
	RecordCacheHit(dataset string)
	RecordFetch(dataset string, duration time.Duration, failed bool)
}

// Settings bounds the coordinator's timing.
type Settings struct {
	// TTL applies to stored payloads and to loading markers alike.
	TTL time.Duration
	// MaxWait bounds how long any caller waits for an in-flight fetch.
	MaxWait time.Duration
	// PollInterval is the re-check period for markers held by another process.
	PollInterval time.Duration
}

// Dependencies bundles collaborators for the coordinator.
type Dependencies struct {
	Store      Store
	Logger     *zap.Logger
	Metrics    Recorder
	Dispatcher events.Dispatcher
	Now        func() time.Time
}

// Coordinator guarantees at most one upstream fetch per dataset in flight.
// Callers in this process share one call and are woken by closing its done
// channel; other processes coordinate through the loading marker in Store.
type Coordinator struct {
	store      Store
	settings   Settings
	logger     *zap.Logger
	metrics    Recorder
	dispatcher events.Dispatcher
	now        func() time.Time
	newID      func() string

	mu       sync.Mutex
	inflight map[string]*call
}

type call struct {
	done chan struct{}
	res  Result
	err  error
}

// NewCoordinator creates a coordinator. A nil Store falls back to a
// process-local MemoryStore.
func NewCoordinator(settings Settings, deps Dependencies) *Coordinator {
	if deps.Store == nil {
		deps.Store = NewMemoryStore()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if settings.TTL <= 0 {
		settings.TTL = 5 * time.Minute
	}
	if settings.MaxWait <= 0 {
		settings.MaxWait = time.Minute
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = time.Second
	}
	return &Coordinator{
		store:      deps.Store,
		settings:   settings,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		dispatcher: deps.Dispatcher,
		now:        deps.Now,
		newID:      uuid.NewString,
		inflight:   make(map[string]*call),
	}
}

// Fetch returns the cached payload of dataset, running fn when the cache is
// empty. Concurrent callers share the same payload and FetchID. The fetch
// runs detached from ctx: a caller that gives up does not cancel it for the
// others.
func (c *Coordinator) Fetch(ctx context.Context, dataset string, fn FetchFunc) (Result, error) {
	c.mu.Lock()
	cl, ok := c.inflight[dataset]
	if !ok {
		cl = &call{done: make(chan struct{})}
		c.inflight[dataset] = cl
		go c.lead(context.WithoutCancel(ctx), dataset, cl, fn)
	}
	c.mu.Unlock()

	return c.wait(ctx, dataset, cl)
}

// Invalidate drops the cached payload of dataset so the next Fetch goes
// upstream.
func (c *Coordinator) Invalidate(ctx context.Context, dataset string) error {
	if err := c.store.Delete(ctx, storeKey(dataset)); err != nil {
		return fmt.Errorf("invalidate %s: %w", dataset, err)
	}
	c.logger.Info("dataset invalidated", zap.String("dataset", dataset))
	return nil
}

func (c *Coordinator) wait(ctx context.Context, dataset string, cl *call) (Result, error) {
	timer := time.NewTimer(c.settings.MaxWait)
	defer timer.Stop()

	select {
	case <-cl.done:
		if cl.err != nil {
			return Result{}, cl.err
		}
		res := cl.res
		res.Payload = bytes.Clone(res.Payload)
		return res, nil
	case <-ctx.Done():
		return Result{}, errorutil.NewTimeoutError(dataset, ctx.Err())
	case <-timer.C:
		return Result{}, errorutil.NewTimeoutError(dataset, errWaitExceeded)
	}
}

func (c *Coordinator) lead(ctx context.Context, dataset string, cl *call, fn FetchFunc) {
	defer func() {
		c.mu.Lock()
		delete(c.inflight, dataset)
		c.mu.Unlock()
		close(cl.done)
	}()
	cl.res, cl.err = c.resolve(ctx, dataset, fn)
}

func (c *Coordinator) resolve(ctx context.Context, dataset string, fn FetchFunc) (Result, error) {
	key := storeKey(dataset)
	deadline := time.Now().Add(c.settings.MaxWait)

	for {
		e, found, err := c.read(ctx, key)
		if err != nil {
			return Result{}, fmt.Errorf("read cache entry %s: %w", dataset, err)
		}

		switch {
		case found && e.Status == statusDone:
			c.recordHit(dataset)
			c.logger.Debug("dataset served from cache",
				zap.String("dataset", dataset),
				zap.String("fetch_id", e.FetchID))
			return Result{Payload: e.Payload, FetchID: e.FetchID, Cached: true}, nil

		case !found:
			claimed, res, err := c.claim(ctx, dataset, key, fn)
			if claimed {
				return res, err
			}
			// another process claimed the key between read and add

		default:
			if !time.Now().Before(deadline) {
				return Result{}, errorutil.NewTimeoutError(dataset, errLoadingElsewhere)
			}
			c.logger.Debug("dataset loading elsewhere; polling",
				zap.String("dataset", dataset),
				zap.String("fetch_id", e.FetchID))
			time.Sleep(c.settings.PollInterval)
		}
	}
}

func (c *Coordinator) read(ctx context.Context, key string) (entry, bool, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return entry{}, false, err
	}
	var e entry
	if err := cbor.Unmarshal(raw, &e); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		if delErr := c.store.Delete(ctx, key); delErr != nil {
			return entry{}, false, delErr
		}
		return entry{}, false, nil
	}
	return e, true, nil
}

// claim writes the loading marker and, when it wins, runs fn. The fetch is
// bounded by the TTL so it never outlives its own marker.
func (c *Coordinator) claim(ctx context.Context, dataset, key string, fn FetchFunc) (bool, Result, error) {
	fetchID := c.newID()
	marker, err := cbor.Marshal(entry{Status: statusLoading, FetchID: fetchID})
	if err != nil {
		return true, Result{}, fmt.Errorf("encode loading marker: %w", err)
	}
	added, err := c.store.Add(ctx, key, marker, c.settings.TTL)
	if err != nil {
		return true, Result{}, fmt.Errorf("claim %s: %w", dataset, err)
	}
	if !added {
		return false, Result{}, nil
	}

	log := c.logger.With(zap.String("dataset", dataset), zap.String("fetch_id", fetchID))
	log.Info("fetching dataset from upstream")
	start := c.now()

	fetchCtx, cancel := context.WithTimeout(ctx, c.settings.TTL)
	payload, err := fn(fetchCtx)
	cancel()
	elapsed := c.now().Sub(start)

	if err != nil {
		c.release(ctx, key, marker, log)
		c.recordFetch(dataset, elapsed, true)
		log.Error("upstream fetch failed", zap.Duration("duration", elapsed), zap.Error(err))
		c.publish(ctx, events.EventDatasetFetchFailed, dataset, events.DatasetFetchFailedPayload{
			FetchID:    fetchID,
			Error:      err.Error(),
			DurationMS: elapsed.Milliseconds(),
		})
		return true, Result{}, errorutil.NewUpstreamError(dataset, err)
	}

	done, err := cbor.Marshal(entry{Status: statusDone, FetchID: fetchID, Payload: payload})
	if err != nil {
		c.release(ctx, key, marker, log)
		return true, Result{}, fmt.Errorf("encode cache entry %s: %w", dataset, err)
	}
	stored, err := c.store.Swap(ctx, key, marker, done, c.settings.TTL)
	if err != nil {
		c.release(ctx, key, marker, log)
		return true, Result{}, fmt.Errorf("store cache entry %s: %w", dataset, err)
	}
	c.recordFetch(dataset, elapsed, false)
	if !stored {
		// The marker expired during the fetch and the key now belongs to
		// another loader; its result is the one that gets published.
		log.Warn("loading marker lost before the fetch completed; result not cached",
			zap.Duration("duration", elapsed))
		return true, Result{Payload: payload, FetchID: fetchID}, nil
	}

	log.Info("dataset refreshed", zap.Int("bytes", len(payload)), zap.Duration("duration", elapsed))
	c.publish(ctx, events.EventDatasetRefreshed, dataset, events.DatasetRefreshedPayload{
		FetchID:    fetchID,
		Bytes:      len(payload),
		DurationMS: elapsed.Milliseconds(),
	})
	return true, Result{Payload: payload, FetchID: fetchID}, nil
}

// release clears this loader's marker. A key claimed since by another
// loader is left alone.
func (c *Coordinator) release(ctx context.Context, key string, marker []byte, log *zap.Logger) {
	if _, err := c.store.DeleteIf(ctx, key, marker); err != nil {
		log.Warn("unable to clear loading marker; it expires with its ttl", zap.Error(err))
	}
}

func (c *Coordinator) recordHit(dataset string) {
	if c.metrics != nil {
		c.metrics.RecordCacheHit(dataset)
	}
}

func (c *Coordinator) recordFetch(dataset string, elapsed time.Duration, failed bool) {
	if c.metrics != nil {
		c.metrics.RecordFetch(dataset, elapsed, failed)
	}
}

func (c *Coordinator) publish(ctx context.Context, eventType events.EventType, dataset string, payload interface{}) {
	if c.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Dataset:   dataset,
		Timestamp: c.now(),
		Payload:   payload,
	}
	if err := c.dispatcher.Publish(ctx, event); err != nil {
		c.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func storeKey(dataset string) string {
	return dataset + "_fetch"
}

// Fetch is the typed form of Coordinator.Fetch: the value produced by fn is
// stored as CBOR and every caller decodes its own copy.
func Fetch[T any](ctx context.Context, c *Coordinator, dataset string, fn func(context.Context) (T, error)) (T, string, error) {
	var out T
	res, err := c.Fetch(ctx, dataset, func(ctx context.Context) ([]byte, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return cbor.Marshal(value)
	})
	if err != nil {
		return out, "", err
	}
	if err := cbor.Unmarshal(res.Payload, &out); err != nil {
		return out, "", fmt.Errorf("decode %s: %w", dataset, err)
	}
	return out, res.FetchID, nil
}
