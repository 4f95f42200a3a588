// Package events provides API lifecycle event dispatch for the management plane.
package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/apis"
)

// Handler reacts to API lifecycle events.
type Handler interface {
	HandleEvent(ctx context.Context, event apis.Event)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event apis.Event)

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event apis.Event) {
	f(ctx, event)
}

// Manager fans API events out to its subscribers.
// Dispatch is synchronous and follows subscription order.
type Manager struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   zerolog.Logger
}

// NewManager creates a new event manager.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Subscribe registers a handler for every API event.
func (m *Manager) Subscribe(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Publish delivers the event to each subscriber in turn.
// A panicking handler is logged and does not stop delivery to the others.
func (m *Manager) Publish(ctx context.Context, event apis.Event) {
	m.mu.RLock()
	handlers := make([]Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.RUnlock()

	for _, h := range handlers {
		m.dispatch(ctx, h, event)
	}
}

// Subscribers returns the number of registered handlers.
func (m *Manager) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers)
}

func (m *Manager) dispatch(ctx context.Context, h Handler, event apis.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error().
				Interface("panic", rec).
				Str("event_id", event.ID).
				Str("event_type", string(event.Type)).
				Msg("event handler panicked")
		}
	}()

	h.HandleEvent(ctx, event)
}

// Ensure Manager implements apis.EventPublisher.
var _ apis.EventPublisher = (*Manager)(nil)
