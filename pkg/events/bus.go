package events

import (
	"sync"

	"github.com/jscyril/tplay/api"
)

// EventBus fans engine events out to subscribers over buffered channels.
// Publishing never blocks: a subscriber whose channel is full misses the event.
type EventBus struct {
	subscribers map[api.EventType][]chan api.Event
	closed      bool
	mu          sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[api.EventType][]chan api.Event),
	}
}

// Subscribe returns a channel for receiving events of the specified types
func (b *EventBus) Subscribe(eventTypes ...api.EventType) <-chan api.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan api.Event, 16)
	if b.closed {
		close(ch)
		return ch
	}
	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}
	return ch
}

// SubscribeAll returns a channel for receiving all event types
func (b *EventBus) SubscribeAll() <-chan api.Event {
	return b.Subscribe(api.EventTypes...)
}

// Publish broadcasts an event to all subscribers of that event type
func (b *EventBus) Publish(event api.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
			// Channel full, skip to prevent blocking
		}
	}
}

// Unsubscribe removes a subscriber channel and closes it
func (b *EventBus) Unsubscribe(sub <-chan api.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var found chan api.Event
	for eventType, subs := range b.subscribers {
		for i, ch := range subs {
			if ch == sub {
				found = ch
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	if found != nil {
		close(found)
	}
}

// Close closes all subscriber channels
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	// Track closed channels to avoid closing the same channel twice
	closed := make(map[chan api.Event]bool)
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			if !closed[ch] {
				close(ch)
				closed[ch] = true
			}
		}
	}
	b.subscribers = make(map[api.EventType][]chan api.Event)
}
