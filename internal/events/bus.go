// Package events publishes workflow progress to in-process subscribers.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultChannelBufferSize is the default buffer size for subscriber channels
	DefaultChannelBufferSize = 100
)

// Type is the kind of a workflow event
type Type string

const (
	TypeRunStarted     Type = "run.started"
	TypeStageStarted   Type = "stage.started"
	TypeStageCompleted Type = "stage.completed"
	TypeStageSkipped   Type = "stage.skipped"
	TypeStageFailed    Type = "stage.failed"
	TypeRunSucceeded   Type = "run.succeeded"
	TypeRunFailed      Type = "run.failed"
)

// Event is one progress notification
type Event struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Type      Type      `json:"type"`
	Stage     string    `json:"stage,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscriber represents a listener subscribed to events
type Subscriber struct {
	// ID is the unique identifier for this subscriber
	ID string

	// Events is the channel where events are sent
	Events chan Event

	// Types limits delivery to these event types (all when empty)
	Types []Type

	// Done is closed when the subscriber should stop
	Done chan struct{}
}

// shouldReceive checks if this subscriber should receive the given event
func (s *Subscriber) shouldReceive(event Event) bool {
	if len(s.Types) == 0 {
		return true
	}
	for _, t := range s.Types {
		if t == event.Type {
			return true
		}
	}
	return false
}

// Bus is the central event pub/sub system
type Bus struct {
	subscribers map[string]*Subscriber
	mu          sync.RWMutex
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe creates a new subscription, optionally limited to some event types
func (b *Bus) Subscribe(types ...Type) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan Event, DefaultChannelBufferSize),
		Types:  types,
		Done:   make(chan struct{}),
	}

	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscriber from the bus. Buffered events can still be
// drained from its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Done)
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Publish sends an event to all matching subscribers. A nil bus discards it.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if sub.shouldReceive(event) {
			// Non-blocking send - drop event if channel is full
			select {
			case sub.Events <- event:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
