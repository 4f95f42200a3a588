package events

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/apis"
)

// PubSubForwarder republishes API events to a Pub/Sub topic so that workers
// running in other processes can react to them.
type PubSubForwarder struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// PubSubForwarderConfig holds configuration for the forwarder.
type PubSubForwarderConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// NewPubSubForwarder creates a new Pub/Sub forwarder.
func NewPubSubForwarder(ctx context.Context, cfg PubSubForwarderConfig) (*PubSubForwarder, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubForwarder{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// HandleEvent publishes the event and waits for the server to acknowledge it.
func (f *PubSubForwarder) HandleEvent(ctx context.Context, event apis.Event) {
	envelope, err := NewEnvelope(event)
	if err != nil {
		f.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to build event envelope")
		return
	}

	if err := f.Publish(ctx, envelope); err != nil {
		f.logger.Error().
			Err(err).
			Str("event_id", event.ID).
			Str("topic", f.topic).
			Msg("failed to forward api event")
	}
}

// Publish sends an envelope to the topic.
func (f *PubSubForwarder) Publish(ctx context.Context, envelope Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	result := f.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": envelope.Type},
	})

	serverID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish %s: %w", envelope.Type, err)
	}

	f.logger.Debug().
		Str("message_id", serverID).
		Str("type", envelope.Type).
		Msg("event forwarded")
	return nil
}

// Close flushes pending messages and closes the client.
func (f *PubSubForwarder) Close() error {
	f.publisher.Stop()
	return f.client.Close()
}

// Ensure PubSubForwarder implements Handler.
var _ Handler = (*PubSubForwarder)(nil)
