package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	cacheHits     map[string]int64
	fetchCount    map[string]int64
	fetchFailures map[string]int64
	fetchDuration map[string]time.Duration
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Requests      map[string]int64 `json:"requests"`
	Errors        map[string]int64 `json:"errors"`
	CacheHits     map[string]int64 `json:"cache_hits"`
	Fetches       map[string]int64 `json:"fetches"`
	FetchFailures map[string]int64 `json:"fetch_failures"`
	FetchMillis   map[string]int64 `json:"fetch_ms_total"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		cacheHits:     make(map[string]int64),
		fetchCount:    make(map[string]int64),
		fetchFailures: make(map[string]int64),
		fetchDuration: make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordCacheHit counts a dataset served from the shared cache.
func (m *Metrics) RecordCacheHit(dataset string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits[dataset]++
}

// RecordFetch counts an upstream fetch and its outcome.
func (m *Metrics) RecordFetch(dataset string, duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCount[dataset]++
	m.fetchDuration[dataset] += duration
	if failed {
		m.fetchFailures[dataset]++
	}
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	millis := make(map[string]int64, len(m.fetchDuration))
	for k, d := range m.fetchDuration {
		millis[k] = d.Milliseconds()
	}
	return MetricsSnapshot{
		Requests:      copyCounts(m.requestCount),
		Errors:        copyCounts(m.errorCount),
		CacheHits:     copyCounts(m.cacheHits),
		Fetches:       copyCounts(m.fetchCount),
		FetchFailures: copyCounts(m.fetchFailures),
		FetchMillis:   millis,
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
