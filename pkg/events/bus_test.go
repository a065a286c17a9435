package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscyril/tplay/api"
)

func TestPublish_DeliversToMatchingSubscribers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	started := bus.Subscribe(api.EventTrackStarted)
	all := bus.SubscribeAll()

	bus.Publish(api.Event{Type: api.EventTrackStarted, Track: api.Track{ID: "a"}})
	bus.Publish(api.Event{Type: api.EventError})

	require.Len(t, started, 1)
	assert.Equal(t, "a", (<-started).Track.ID)

	require.Len(t, all, 2)
	assert.Equal(t, api.EventTrackStarted, (<-all).Type)
	assert.Equal(t, api.EventError, (<-all).Type)
}

func TestPublish_FullSubscriberDoesNotBlock(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(api.EventStateChange)
	for i := 0; i < cap(ch)+10; i++ {
		bus.Publish(api.Event{Type: api.EventStateChange})
	}
	assert.Len(t, ch, cap(ch))
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.SubscribeAll()
	bus.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)

	// publishing after unsubscribe must not panic on the closed channel
	bus.Publish(api.Event{Type: api.EventTrackEnded})
}

func TestClose_Idempotent(t *testing.T) {
	bus := NewEventBus()
	ch := bus.SubscribeAll()

	bus.Close()
	bus.Close()

	_, ok := <-ch
	assert.False(t, ok)

	late := bus.Subscribe(api.EventError)
	_, ok = <-late
	assert.False(t, ok, "subscriptions after Close are closed immediately")
}
