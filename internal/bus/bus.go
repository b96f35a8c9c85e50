// Package bus broadcasts run progress events to subscribers such as the
// CLI progress printer.
package bus

import (
	"sync"
	"time"
)

// EventType classifies a run progress event.
type EventType string

const (
	EventRunStarted  EventType = "run_started"
	EventDecision    EventType = "decision"
	EventToolCalled  EventType = "tool_called"
	EventToolFailed  EventType = "tool_failed"
	EventRunFinished EventType = "run_finished"
)

// Event is one progress notification for a run.
type Event struct {
	RunID     string
	Type      EventType
	Iteration int
	Detail    string
	At        time.Time
}

// EventHandler receives broadcast events. Handlers must not block.
type EventHandler func(Event)

// Bus fans events out to registered subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]EventHandler
}

func New() *Bus {
	return &Bus{subscribers: make(map[string]EventHandler)}
}

// Subscribe registers a handler under an ID used for Unsubscribe.
func (b *Bus) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[id] = handler
}

// Unsubscribe removes a subscriber.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
}

// Publish sends an event to all subscribers. A nil bus is a no-op so
// callers can skip the nil check.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, handler := range b.subscribers {
		handler(event)
	}
}
