package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// EventBookingCommitted fires after a booking transaction lands.
	// Payload: booking_id, candidate_id, category, scheduled_start,
	// confirmation_code.
	EventBookingCommitted EventType = "booking.committed"

	// EventCandidateStatusChanged fires after a candidate status
	// write. Payload: candidate_id, status.
	EventCandidateStatusChanged EventType = "candidate.status_changed"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub. Delivery is best-effort: a
// subscriber that falls behind loses events rather than blocking the
// publisher, which matches the fire-and-forget contract of the
// notification boundary.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 16)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers without blocking.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- payload:
		default:
		}
	}
}
