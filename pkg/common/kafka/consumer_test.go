package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/genomics/pkg/common/models"
)

func TestHandleGivesUpAfterMaxAttempts(t *testing.T) {
	var gaveUp []int
	c := &Consumer{maxAttempts: 3, backoff: time.Millisecond}
	c.OnGiveUp(func(_ context.Context, event models.Event, attempts int, err error) {
		assert.Equal(t, "evt-1", event.ID)
		assert.EqualError(t, err, "storage down")
		gaveUp = append(gaveUp, attempts)
	})

	calls := 0
	err := c.handle(context.Background(), func(context.Context, models.Event) error {
		calls++
		return errors.New("storage down")
	}, models.Event{ID: "evt-1"})

	require.NoError(t, err, "an abandoned event is committed")
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{3}, gaveUp)
}

func TestHandleRetriesUntilSuccess(t *testing.T) {
	c := &Consumer{maxAttempts: 5, backoff: time.Millisecond}
	c.OnGiveUp(func(context.Context, models.Event, int, error) {
		t.Fatal("gave up on an event that succeeded")
	})

	calls := 0
	err := c.handle(context.Background(), func(context.Context, models.Event) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, models.Event{ID: "evt-2"})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestHandleStopsOnCancel(t *testing.T) {
	c := &Consumer{backoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	err := c.handle(ctx, func(context.Context, models.Event) error {
		cancel()
		return errors.New("storage down")
	}, models.Event{ID: "evt-3"})

	assert.ErrorIs(t, err, context.Canceled)
}
