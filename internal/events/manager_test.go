package events_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/gatewayplane/gatewayplane/internal/apis"
	"github.com/gatewayplane/gatewayplane/internal/events"
)

func TestManager_PublishInSubscriptionOrder(t *testing.T) {
	m := events.NewManager(zerolog.Nop())

	var order []string
	m.Subscribe(events.HandlerFunc(func(context.Context, apis.Event) { order = append(order, "first") }))
	m.Subscribe(events.HandlerFunc(func(context.Context, apis.Event) { order = append(order, "second") }))

	m.Publish(context.Background(), apis.NewEvent(apis.EventUpdate, &apis.API{ID: "petstore"}))

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 2, m.Subscribers())
}

func TestManager_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	m := events.NewManager(zerolog.Nop())

	delivered := false
	m.Subscribe(events.HandlerFunc(func(context.Context, apis.Event) { panic("boom") }))
	m.Subscribe(events.HandlerFunc(func(context.Context, apis.Event) { delivered = true }))

	assert.NotPanics(t, func() {
		m.Publish(context.Background(), apis.NewEvent(apis.EventUpdate, &apis.API{ID: "petstore"}))
	})
	assert.True(t, delivered)
}

func TestManager_NoSubscribers(t *testing.T) {
	m := events.NewManager(zerolog.Nop())

	assert.NotPanics(t, func() {
		m.Publish(context.Background(), apis.NewEvent(apis.EventCreate, &apis.API{ID: "petstore"}))
	})
	assert.Equal(t, 0, m.Subscribers())
}
