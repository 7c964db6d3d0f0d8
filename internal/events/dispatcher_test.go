package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_Publish_RunsEveryHandler_And_JoinsErrors(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	var seen []string
	d.Subscribe(EventDatasetRefreshed, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.Dataset)
		return boom
	})
	d.Subscribe(EventDatasetRefreshed, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.Dataset)
		return nil
	})
	d.Subscribe(EventDatasetFetchFailed, func(context.Context, Event) error {
		t.Fatal("unexpected handler")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventDatasetRefreshed, Dataset: "tickets"})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first:tickets", "second:tickets"}, seen)
}
