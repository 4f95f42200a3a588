package apis

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType is the kind of lifecycle change an API went through.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventStart  EventType = "START"
	EventStop   EventType = "STOP"
)

// Event describes a lifecycle change of an API. API holds the state after the change.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	API        *API      `json:"api"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewEvent creates an event of the given type for an API.
func NewEvent(eventType EventType, api *API) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		API:        api,
		OccurredAt: time.Now().UTC(),
	}
}

// EventPublisher receives API lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}
