package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/gatewayplane/gatewayplane/internal/alert"
)

// KafkaConfig configures the Kafka transport.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// MessageWriter writes Kafka messages. *kafka.Writer satisfies it.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSinkConfig holds configuration for the Kafka sink.
type KafkaSinkConfig struct {
	Brokers []string
	Topic   string
	Logger  zerolog.Logger

	// Writer overrides the writer built from Brokers and Topic. Optional.
	Writer MessageWriter
}

// KafkaSink writes triggers to a topic keyed by trigger ID, so a trigger and its
// cancellation land on the same partition in order.
type KafkaSink struct {
	writer MessageWriter
	logger zerolog.Logger
}

// NewKafkaSink creates a Kafka sink.
func NewKafkaSink(cfg KafkaSinkConfig) (*KafkaSink, error) {
	writer := cfg.Writer
	if writer == nil {
		if len(cfg.Brokers) == 0 || cfg.Topic == "" {
			return nil, errors.New("alert sink kafka brokers and topic are required")
		}
		writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}
	}

	return &KafkaSink{
		writer: writer,
		logger: cfg.Logger,
	}, nil
}

// Send writes the trigger and waits for the brokers to acknowledge it.
func (s *KafkaSink) Send(ctx context.Context, t alert.Trigger) error {
	body, err := encode(t)
	if err != nil {
		return err
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(t.ID),
		Value: body,
		Time:  timestamp(),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(messageType(t))},
			{Key: "content-type", Value: []byte(ContentType)},
		},
	})
	if err != nil {
		return fmt.Errorf("write trigger %s: %w", t.ID, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

var _ Sink = (*KafkaSink)(nil)
