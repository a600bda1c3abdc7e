package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-console/internal/clock"
)

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	calls := 0
	d.Subscribe(EventNotification, func(context.Context, Event) error {
		calls++
		return errors.New("boom")
	})
	d.Subscribe(EventNotification, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventNotification})

	assert.Equal(t, 2, calls)
	assert.EqualError(t, err, "boom")
}

func TestNotifierFeedsLog(t *testing.T) {
	d := NewInMemoryDispatcher()
	log := NewNotificationLog(nil, 2)
	log.RegisterHandlers(d)
	fake := clock.Fake(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	n := NewNotifier(d, nil, fake)

	first := n.Notify(context.Background(), LevelSuccess, "save", "saved", "1")
	n.Notify(context.Background(), LevelError, "resolve", "failed", "1")
	n.Notify(context.Background(), LevelWarning, "resolve", "audit failed", "2")

	require.NotEmpty(t, first.ID)
	assert.Equal(t, fake.Now(), first.CreatedAt)

	recent := log.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "audit failed", recent[0].Message)
	assert.Equal(t, "failed", recent[1].Message)
	assert.Len(t, log.Recent(1), 1)
}

func TestRecentOnEmptyLog(t *testing.T) {
	assert.Empty(t, NewNotificationLog(nil, 0).Recent(5))
}
