package sink

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AMQPChannel exposes the channel interface to tests.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

func NewRabbitMQSinkWithChannel(ch AMQPChannel, confirms <-chan amqp.Confirmation, exchange, routingKey string) *RabbitMQSink {
	return newRabbitMQSink(ch, confirms, exchange, routingKey, zerolog.Nop())
}
