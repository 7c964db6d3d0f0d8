package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Snapshot_CountsRequestsAndFetches(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordRequest("/api/reports/vip", "GET", 200, time.Millisecond)
	m.RecordRequest("/api/reports/vip", "GET", 200, time.Millisecond)
	m.RecordError("/api/reports/x", "GET", "NOT_FOUND")
	m.RecordCacheHit("tickets")
	m.RecordFetch("tickets", 1500*time.Millisecond, false)
	m.RecordFetch("tickets", 500*time.Millisecond, true)

	snap := m.Snapshot()

	assert.Equal(t, int64(2), snap.Requests["/api/reports/vip|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/api/reports/x|GET|NOT_FOUND"])
	assert.Equal(t, int64(1), snap.CacheHits["tickets"])
	assert.Equal(t, int64(2), snap.Fetches["tickets"])
	assert.Equal(t, int64(1), snap.FetchFailures["tickets"])
	assert.Equal(t, int64(2000), snap.FetchMillis["tickets"])
}

func TestMetrics_NilReceiver_IsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordCacheHit("tickets")
	m.RecordFetch("tickets", time.Second, true)

	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
}
