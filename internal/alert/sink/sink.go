// Package sink delivers health-check trigger messages to the alert engine.
//
// Triggers are JSON encoded and sent over one of several transports, chosen by
// Config.Kind. Broker transports are wrapped in a circuit breaker with retries.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/alert"
	"github.com/gatewayplane/gatewayplane/internal/resilience"
)

// Supported sink kinds.
const (
	KindLog      = "log"
	KindHTTP     = "http"
	KindRabbitMQ = "rabbitmq"
	KindKafka    = "kafka"
)

// ContentType is the media type of encoded triggers.
const ContentType = "application/json"

// ErrUnknownKind is returned when the configured sink kind is not supported.
var ErrUnknownKind = errors.New("unknown alert sink kind")

// Sink is an alert.Sink holding transport resources.
type Sink interface {
	alert.Sink
	Close() error
}

// Config selects and configures the sink transport.
type Config struct {
	Kind     string
	HTTP     HTTPConfig
	RabbitMQ RabbitMQConfig
	Kafka    KafkaConfig

	// Registry receives the health of the transport. Optional.
	Registry *resilience.Registry
}

// New builds the sink selected by cfg.Kind. An empty kind selects the log sink.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (Sink, error) {
	logger = logger.With().Str("component", "alert_sink").Str("kind", cfg.Kind).Logger()

	switch cfg.Kind {
	case "", KindLog:
		return NewLogSink(logger), nil

	case KindHTTP:
		s, err := NewHTTPSink(HTTPSinkConfig{
			URL:      cfg.HTTP.URL,
			Timeout:  cfg.HTTP.Timeout,
			Registry: cfg.Registry,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	case KindRabbitMQ:
		s, err := NewRabbitMQSink(ctx, cfg.RabbitMQ, logger)
		if err != nil {
			return nil, err
		}
		return NewResilient(s, ResilientConfig{Name: "alert-sink-rabbitmq", Registry: cfg.Registry}), nil

	case KindKafka:
		s, err := NewKafkaSink(KafkaSinkConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return NewResilient(s, ResilientConfig{Name: "alert-sink-kafka", Registry: cfg.Registry}), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// encode renders a trigger as the message body.
// Encoding failures are permanent.
func encode(t alert.Trigger) ([]byte, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("marshal trigger %s: %w", t.ID, err))
	}
	return body, nil
}

// messageType labels a trigger for brokers and logs.
func messageType(t alert.Trigger) string {
	if t.Cancel {
		return "trigger.cancel"
	}
	return "trigger"
}

func timestamp() time.Time {
	return time.Now().UTC()
}
