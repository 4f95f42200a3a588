package worker

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// DefaultMaxOutstanding caps unacknowledged messages held by one consumer.
const DefaultMaxOutstanding = 10

// ConsumerConfig configures a Pub/Sub consumer.
type ConsumerConfig struct {
	ProjectID      string
	Subscription   string
	MaxOutstanding int
	Dispatcher     *Dispatcher
	Logger         zerolog.Logger
}

// Consumer acknowledges a Pub/Sub message once its Dispatcher accepted it and
// nacks it for redelivery otherwise.
type Consumer struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	subscription string
	dispatcher   *Dispatcher
	logger       zerolog.Logger
}

// NewConsumer connects to Pub/Sub. Call Run to start receiving.
func NewConsumer(ctx context.Context, cfg ConsumerConfig) (*Consumer, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	outstanding := cfg.MaxOutstanding
	if outstanding <= 0 {
		outstanding = DefaultMaxOutstanding
	}

	sub := client.Subscriber(cfg.Subscription)
	sub.ReceiveSettings.MaxOutstandingMessages = outstanding
	sub.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &Consumer{
		client:       client,
		subscriber:   sub,
		subscription: cfg.Subscription,
		dispatcher:   cfg.Dispatcher,
		logger:       cfg.Logger.With().Str("component", "pubsub_consumer").Logger(),
	}, nil
}

// Run blocks receiving messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info().Str("subscription", c.subscription).Msg("consuming api events")
	return c.subscriber.Receive(ctx, c.receive)
}

// Close releases the Pub/Sub client.
func (c *Consumer) Close() error {
	return c.client.Close()
}

func (c *Consumer) receive(ctx context.Context, msg *pubsub.Message) {
	started := time.Now()

	entry := c.logger.With().
		Str("message_id", msg.ID).
		Str("type", msg.Attributes["type"]).
		Time("published", msg.PublishTime)
	if msg.DeliveryAttempt != nil {
		entry = entry.Int("delivery_attempt", *msg.DeliveryAttempt)
	}
	logger := entry.Logger()

	if err := c.dispatcher.Dispatch(ctx, msg.Data); err != nil {
		logger.Error().Err(err).Msg("dispatch failed, message nacked")
		msg.Nack()
		return
	}

	msg.Ack()
	logger.Debug().Dur("duration", time.Since(started)).Msg("message acked")
}
