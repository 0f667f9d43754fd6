package fanout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charleschow/slope-limits/internal/events"
)

// Envelope is the wire format for events sent over the fanout WebSocket.
type Envelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
}

// MarshalEvent serializes an Event into a JSON-encoded Envelope.
func MarshalEvent(evt events.Event) ([]byte, error) {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	env := Envelope{
		Type:      string(evt.Type),
		ID:        evt.ID,
		Timestamp: evt.Timestamp,
		Payload:   payload,
	}
	return json.Marshal(env)
}

// UnmarshalEvent deserializes a JSON Envelope back into a typed Event.
func UnmarshalEvent(data []byte) (events.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return events.Event{}, fmt.Errorf("unmarshal envelope: %w", err)
	}

	evt := events.Event{
		ID:        env.ID,
		Type:      events.EventType(env.Type),
		Timestamp: env.Timestamp,
	}

	switch evt.Type {
	case events.EventPolicyChanged:
		var pc events.PolicyChangedEvent
		if err := json.Unmarshal(env.Payload, &pc); err != nil {
			return evt, fmt.Errorf("unmarshal policy_changed: %w", err)
		}
		evt.Payload = pc
	case events.EventLimitChanged:
		var lc events.LimitChangedEvent
		if err := json.Unmarshal(env.Payload, &lc); err != nil {
			return evt, fmt.Errorf("unmarshal limit_changed: %w", err)
		}
		evt.Payload = lc
	case events.EventNetworkDiscovered:
		var nd events.NetworkDiscoveredEvent
		if err := json.Unmarshal(env.Payload, &nd); err != nil {
			return evt, fmt.Errorf("unmarshal network_discovered: %w", err)
		}
		evt.Payload = nd
	case events.EventResolverBroken:
		var rb events.ResolverBrokenEvent
		if err := json.Unmarshal(env.Payload, &rb); err != nil {
			return evt, fmt.Errorf("unmarshal resolver_broken: %w", err)
		}
		evt.Payload = rb
	default:
		return evt, fmt.Errorf("unknown event type: %s", env.Type)
	}

	return evt, nil
}
