package events

import "time"

// Event is the envelope that flows through the event bus.
// Every domain event (policy change, limit edit, discovery) is wrapped in one.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type EventType string

const (
	// Resolver transitions
	EventPolicyChanged  EventType = "policy_changed"
	EventResolverBroken EventType = "resolver_broken"
	// Store edits and discoveries
	EventLimitChanged      EventType = "limit_changed"
	EventNetworkDiscovered EventType = "network_discovered"
)

// New wraps payload in an envelope stamped with the current time.
func New(t EventType, id string, payload any) Event {
	return Event{ID: id, Type: t, Timestamp: time.Now().UTC(), Payload: payload}
}
