package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticket-priority/internal/config"
	"github.com/spec-kit/ticket-priority/internal/events"
)

func TestNotificationService_LogsDatasetEvents(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{EmailFrom: "ops@example.org"})
	svc.RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:    events.EventDatasetRefreshed,
		Dataset: DatasetTickets,
		Payload: events.DatasetRefreshedPayload{FetchID: "f1", Bytes: 12},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:    events.EventDatasetFetchFailed,
		Dataset: DatasetActions,
		Payload: events.DatasetFetchFailedPayload{FetchID: "f2", Error: "boom"},
	}))

	refreshed := logs.FilterMessage("DatasetRefreshed").All()
	require.Len(t, refreshed, 1)
	assert.Equal(t, "f1", refreshed[0].ContextMap()["fetch_id"])

	failed := logs.FilterMessage("DatasetFetchFailed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, "boom", failed[0].ContextMap()["error"])

	assert.Equal(t, 1, logs.FilterMessage("sendEmailNotificationStub").Len())
	assert.Zero(t, logs.FilterMessage("sendWebhookNotificationStub").Len())
}
