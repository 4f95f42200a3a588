package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/alert"
)

// Default RabbitMQ settings.
const (
	DefaultExchangeType = "topic"
	DefaultRoutingKey   = "alert.trigger"
	confirmTimeout      = 5 * time.Second
	dialAttempts        = 5
)

// ErrPublishNacked is returned when the broker refuses a published trigger.
var ErrPublishNacked = errors.New("broker did not acknowledge trigger")

// RabbitMQConfig configures the RabbitMQ transport.
type RabbitMQConfig struct {
	URL          string
	Exchange     string
	ExchangeType string
	RoutingKey   string
}

// amqpChannel is the part of *amqp.Channel used for publishing.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQSink publishes triggers to an exchange with publisher confirms.
// Publishes are serialized so each confirmation matches its message.
type RabbitMQSink struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	ch         amqpChannel
	confirms   <-chan amqp.Confirmation
	exchange   string
	routingKey string
	tag        uint64
	logger     zerolog.Logger
}

// NewRabbitMQConnection dials the broker, retrying with backoff up to the given number of attempts.
func NewRabbitMQConnection(ctx context.Context, url string, attempts uint64, logger zerolog.Logger) (*amqp.Connection, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxElapsedTime = 0

	var conn *amqp.Connection
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var err error
		conn, err = amqp.Dial(url)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("rabbitmq connection attempt failed")
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, attempts), ctx))
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq after %d attempts: %w", attempt, err)
	}
	return conn, nil
}

// SetupTopology declares the durable exchange triggers are published to.
func SetupTopology(conn *amqp.Connection, cfg RabbitMQConfig) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(cfg.Exchange, cfg.ExchangeType, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	return nil
}

// NewRabbitMQSink connects to the broker, declares the exchange and opens a channel in confirm mode.
func NewRabbitMQSink(ctx context.Context, cfg RabbitMQConfig, logger zerolog.Logger) (*RabbitMQSink, error) {
	if cfg.URL == "" || cfg.Exchange == "" {
		return nil, errors.New("alert sink rabbitmq url and exchange are required")
	}
	if cfg.ExchangeType == "" {
		cfg.ExchangeType = DefaultExchangeType
	}
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = DefaultRoutingKey
	}

	conn, err := NewRabbitMQConnection(ctx, cfg.URL, dialAttempts, logger)
	if err != nil {
		return nil, err
	}

	if err := SetupTopology(conn, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 16))

	logger.Info().
		Str("exchange", cfg.Exchange).
		Str("routing_key", cfg.RoutingKey).
		Msg("rabbitmq alert sink connected")

	s := newRabbitMQSink(ch, confirms, cfg.Exchange, cfg.RoutingKey, logger)
	s.conn = conn
	return s, nil
}

func newRabbitMQSink(ch amqpChannel, confirms <-chan amqp.Confirmation, exchange, routingKey string, logger zerolog.Logger) *RabbitMQSink {
	return &RabbitMQSink{
		ch:         ch,
		confirms:   confirms,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}
}

// Send publishes the trigger and waits for the broker to confirm it.
func (s *RabbitMQSink) Send(ctx context.Context, t alert.Trigger) error {
	body, err := encode(t)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.ch.PublishWithContext(ctx, s.exchange, s.routingKey, false, false, amqp.Publishing{
		ContentType:  ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    t.ID,
		Type:         messageType(t),
		Timestamp:    timestamp(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish trigger %s: %w", t.ID, err)
	}
	s.tag++

	return s.awaitConfirm(ctx, t.ID, s.tag)
}

// awaitConfirm waits for the confirmation of the given delivery tag.
// Confirmations for earlier tags, left over from timed out sends, are skipped.
func (s *RabbitMQSink) awaitConfirm(ctx context.Context, id string, tag uint64) error {
	timer := time.NewTimer(confirmTimeout)
	defer timer.Stop()

	for {
		select {
		case confirm, ok := <-s.confirms:
			if !ok {
				return fmt.Errorf("publish trigger %s: confirm channel closed", id)
			}
			if confirm.DeliveryTag < tag {
				continue
			}
			if !confirm.Ack {
				return fmt.Errorf("publish trigger %s: %w", id, ErrPublishNacked)
			}
			return nil
		case <-timer.C:
			return fmt.Errorf("publish trigger %s: confirm timeout", id)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close closes the channel and the connection.
func (s *RabbitMQSink) Close() error {
	var errs []error
	if s.ch != nil {
		errs = append(errs, s.ch.Close())
	}
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
	}
	return errors.Join(errs...)
}

var _ Sink = (*RabbitMQSink)(nil)
