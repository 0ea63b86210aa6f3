// Package realtime pushes per-user events to WebSocket sessions and fans them
// out across API instances.
package realtime

import "encoding/json"

const (
	EventDashboard    = "dashboard"
	EventNewMessage   = "new_message"
	EventActionResult = "action_result"
	EventError        = "error"
)

// Event is a frame sent to the browser
type Event struct {
	Type    string          `json:"type"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent encodes payload into an event of the given type
func NewEvent(typ string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Payload: raw}, nil
}

// Envelope addresses an event to every session of one user
type Envelope struct {
	UserID string `json:"userId"`
	Event  Event  `json:"event"`
}
