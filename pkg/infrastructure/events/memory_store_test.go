package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)

func TestInMemoryEventStore_VersionsPerStream(t *testing.T) {
	store := NewInMemoryEventStore(nil)

	require.NoError(t, store.AppendEvent("s1", NewEvent(SeasonStartedEvent, "s1", SeasonStarted{Category: "outerwear"}, at)))
	require.NoError(t, store.AppendEvent("s2", NewEvent(SeasonStartedEvent, "s2", nil, at)))
	require.NoError(t, store.AppendEvent("s1", NewEvent(ForecastCreatedEvent, "s1", ForecastCreated{Version: 1}, at)))

	s1, err := store.ReadEvents("s1", 0)
	require.NoError(t, err)
	require.Len(t, s1, 2)
	assert.Equal(t, 1, s1[0].Version())
	assert.Equal(t, 2, s1[1].Version())
	assert.Equal(t, ForecastCreatedEvent, s1[1].Type())

	from2, _ := store.ReadEvents("s1", 2)
	assert.Len(t, from2, 1)

	none, _ := store.ReadEvents("missing", 1)
	assert.Empty(t, none)

	all, _ := store.ReadAllEvents(1)
	require.Len(t, all, 2)
	assert.Equal(t, "s2", all[0].StreamID())
}

func TestInMemoryEventStore_NotifiesSubscribers(t *testing.T) {
	store := NewInMemoryEventStore(nil)

	var mu sync.Mutex
	var seen []string
	handler := &HandlerFunc{Fn: func(e Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type())
		return nil
	}}
	require.NoError(t, store.Subscribe([]string{PlanCreatedEvent}, handler))

	_ = store.AppendEvent("s1", NewEvent(ForecastCreatedEvent, "s1", nil, at))
	_ = store.AppendEvent("s1", NewEvent(PlanCreatedEvent, "s1", nil, at))
	store.Wait()

	mu.Lock()
	assert.Equal(t, []string{PlanCreatedEvent}, seen)
	mu.Unlock()

	require.NoError(t, store.Unsubscribe(handler))
	_ = store.AppendEvent("s1", NewEvent(PlanCreatedEvent, "s1", nil, at))
	store.Wait()

	mu.Lock()
	assert.Len(t, seen, 1)
	mu.Unlock()
}

func TestInMemoryEventStore_HandlerErrorDoesNotFailAppend(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	_ = store.Subscribe([]string{SeasonBlockedEvent}, &HandlerFunc{Fn: func(Event) error { return errors.New("boom") }})

	assert.NoError(t, store.AppendEvent("s1", NewEvent(SeasonBlockedEvent, "s1", nil, at)))
	store.Wait()
}

func TestHandlerFunc_CanHandle(t *testing.T) {
	all := &HandlerFunc{}
	assert.True(t, all.CanHandle(PlanCreatedEvent))

	only := &HandlerFunc{Types: []string{MarkdownDecidedEvent}}
	assert.True(t, only.CanHandle(MarkdownDecidedEvent))
	assert.False(t, only.CanHandle(PlanCreatedEvent))
}
