package websocket

import "github.com/vntrieu/mafia/internal/games"

// ClientInMessage is the envelope for messages from client to server.
type ClientInMessage struct {
	Type          string                 `json:"type"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

// ServerEnvelope is the envelope for messages from server to client.
// Type: "event" | "state" | "error"
type ServerEnvelope struct {
	Type          string                 `json:"type"`
	Event         string                 `json:"event,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	View          *games.View            `json:"view,omitempty"`
}

// Client message types.
const (
	ClientMessageTypeAction    = "action"
	ClientMessageTypeVote      = "vote"
	ClientMessageTypeConfirm   = "confirm"
	ClientMessageTypeAdvance   = "advance"
	ClientMessageTypeStart     = "start"
	ClientMessageTypeReset     = "reset"
	ClientMessageTypeRestart   = "restart"
	ClientMessageTypeSyncState = "sync_state"
)

// Server envelope types.
const (
	ServerTypeEvent = "event"
	ServerTypeState = "state"
	ServerTypeError = "error"
)

// ServerEventState is the event name carried by state envelopes.
const ServerEventState = "state"

// MaxClientMessageTypeLength limits the "type" field to prevent abuse.
const MaxClientMessageTypeLength = 64

// ValidClientMessageTypes are the only allowed values for ClientInMessage.Type.
var ValidClientMessageTypes = map[string]bool{
	ClientMessageTypeAction:    true,
	ClientMessageTypeVote:      true,
	ClientMessageTypeConfirm:   true,
	ClientMessageTypeAdvance:   true,
	ClientMessageTypeStart:     true,
	ClientMessageTypeReset:     true,
	ClientMessageTypeRestart:   true,
	ClientMessageTypeSyncState: true,
}

func eventEnvelope(ev games.BroadcastEvent) *ServerEnvelope {
	return &ServerEnvelope{Type: ServerTypeEvent, Event: ev.Event, Payload: ev.Payload}
}

func stateEnvelope(view games.View) *ServerEnvelope {
	return &ServerEnvelope{Type: ServerTypeState, Event: ServerEventState, View: &view}
}

func errorEnvelope(correlationID, message string, reason games.Reason) *ServerEnvelope {
	payload := map[string]interface{}{"message": message}
	if reason != "" {
		payload["reason"] = string(reason)
	}
	return &ServerEnvelope{Type: ServerTypeError, CorrelationID: correlationID, Payload: payload}
}
