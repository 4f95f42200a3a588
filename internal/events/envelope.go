package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/gatewayplane/gatewayplane/internal/apis"
)

// Message types carried in an Envelope.
const (
	MessageAPICreated   = "api.created"
	MessageAPIUpdated   = "api.updated"
	MessageAPIDeleted   = "api.deleted"
	MessageAPIStarted   = "api.started"
	MessageAPIStopped   = "api.stopped"
	MessageAlertsResync = "alerts.resync"
)

var messageTypes = map[apis.EventType]string{
	apis.EventCreate: MessageAPICreated,
	apis.EventUpdate: MessageAPIUpdated,
	apis.EventDelete: MessageAPIDeleted,
	apis.EventStart:  MessageAPIStarted,
	apis.EventStop:   MessageAPIStopped,
}

// Envelope is the wire format for events crossing process boundaries.
type Envelope struct {
	ID      uuid.UUID       `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps an API event for transport.
func NewEnvelope(event apis.Event) (Envelope, error) {
	msgType, ok := messageTypes[event.Type]
	if !ok {
		return Envelope{}, fmt.Errorf("unsupported event type %q", event.Type)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal event: %w", err)
	}

	id, err := uuid.Parse(event.ID)
	if err != nil {
		id = uuid.New()
	}

	return Envelope{ID: id, Type: msgType, Payload: payload}, nil
}

// NewResyncEnvelope builds a request for a full trigger resynchronization.
func NewResyncEnvelope() Envelope {
	return Envelope{ID: uuid.New(), Type: MessageAlertsResync}
}

// IsAPIEvent reports whether the envelope carries an API lifecycle event.
func (e Envelope) IsAPIEvent() bool {
	for _, t := range messageTypes {
		if t == e.Type {
			return true
		}
	}
	return false
}

// Event decodes the API event carried by the envelope.
func (e Envelope) Event() (apis.Event, error) {
	if !e.IsAPIEvent() {
		return apis.Event{}, fmt.Errorf("envelope type %q is not an api event", e.Type)
	}

	var event apis.Event
	if err := json.Unmarshal(e.Payload, &event); err != nil {
		return apis.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.API == nil {
		return apis.Event{}, fmt.Errorf("event %s has no api", event.ID)
	}
	return event, nil
}
