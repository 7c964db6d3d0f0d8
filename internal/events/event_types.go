package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDatasetRefreshed   EventType = "dataset_refreshed"
	EventDatasetFetchFailed EventType = "dataset_fetch_failed"
)

// Event represents a notification emitted by the cache coordinator.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Dataset   string      `json:"dataset"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// DatasetRefreshedPayload payload.
type DatasetRefreshedPayload struct {
	FetchID    string `json:"fetch_id"`
	Bytes      int    `json:"bytes"`
	DurationMS int64  `json:"duration_ms"`
}

// DatasetFetchFailedPayload payload.
type DatasetFetchFailedPayload struct {
	FetchID    string `json:"fetch_id"`
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}
