package realtime

import "encoding/json"

// Event names shared with the browser client. Inbound names are what
// clients emit; the rest are delivered by the server.
const (
	EventSetup         = "setup"
	EventConnected     = "connected"
	EventJoinChat      = "join chat"
	EventNewMessage    = "new message"
	EventReactionAdded = "reaction added"

	EventMessageReceived   = "message received"
	EventReactionReceived  = "reaction received"
	EventUserUpdated       = "user-updated"
	EventUserDeleted       = "user-deleted"
	EventUserStatusChanged = "user-status-changed"
)

// Event is the wire envelope for both directions of the socket.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewEvent(name string, payload interface{}) (*Event, error) {
	if payload == nil {
		return &Event{Name: name}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{Name: name, Payload: raw}, nil
}

func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
