package sink_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewayplane/gatewayplane/internal/alert"
	"github.com/gatewayplane/gatewayplane/internal/alert/sink"
	"github.com/gatewayplane/gatewayplane/internal/resilience"
)

func sampleTrigger() alert.Trigger {
	return alert.Trigger{
		ID:             "HC-123-default-backend",
		Name:           alert.TriggerName,
		Condition:      alert.Condition("123", "default", "backend"),
		ViewDetailsURL: alert.DetailsURL("https://portal.example.com", "123"),
		Notifications: []alert.Notification{{
			Type:              alert.NotificationTypeEmail,
			Destination:       "owner@example.com",
			JSONConfiguration: `{"host":"smtp.example.com"}`,
		}},
	}
}

func TestNew(t *testing.T) {
	t.Run("empty kind selects log sink", func(t *testing.T) {
		s, err := sink.New(context.Background(), sink.Config{}, zerolog.Nop())
		require.NoError(t, err)
		assert.IsType(t, &sink.LogSink{}, s)
	})

	t.Run("http requires url", func(t *testing.T) {
		_, err := sink.New(context.Background(), sink.Config{Kind: sink.KindHTTP}, zerolog.Nop())
		assert.Error(t, err)
	})

	t.Run("http", func(t *testing.T) {
		s, err := sink.New(context.Background(), sink.Config{
			Kind: sink.KindHTTP,
			HTTP: sink.HTTPConfig{URL: "http://alert-engine.local/triggers"},
		}, zerolog.Nop())
		require.NoError(t, err)
		assert.IsType(t, &sink.HTTPSink{}, s)
	})

	t.Run("kafka requires brokers", func(t *testing.T) {
		_, err := sink.New(context.Background(), sink.Config{Kind: sink.KindKafka}, zerolog.Nop())
		assert.Error(t, err)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := sink.New(context.Background(), sink.Config{Kind: "carrier-pigeon"}, zerolog.Nop())
		assert.ErrorIs(t, err, sink.ErrUnknownKind)
	})
}

func TestLogSink_Send(t *testing.T) {
	var buf bytes.Buffer
	s := sink.NewLogSink(zerolog.New(&buf))

	require.NoError(t, s.Send(context.Background(), sampleTrigger()))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "HC-123-default-backend", entry["trigger_id"])
	assert.Equal(t, "trigger", entry["type"])
	assert.Equal(t, "alert trigger", entry["message"])
	assert.NoError(t, s.Close())
}

func TestHTTPSink_Send(t *testing.T) {
	var received alert.Trigger
	var contentType, messageType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		contentType = r.Header.Get("Content-Type")
		messageType = r.Header.Get("X-Message-Type")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	s, err := sink.NewHTTPSink(sink.HTTPSinkConfig{URL: server.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), sampleTrigger()))

	assert.Equal(t, sink.ContentType, contentType)
	assert.Equal(t, "trigger", messageType)
	assert.Equal(t, sampleTrigger(), received)
}

func TestHTTPSink_Cancel(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		assert.Equal(t, "trigger.cancel", r.Header.Get("X-Message-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s, err := sink.NewHTTPSink(sink.HTTPSinkConfig{URL: server.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), alert.NewCancelTrigger("HC-123-default-backend")))
	assert.JSONEq(t, `{"id":"HC-123-default-backend","cancel":true}`, string(body))
}

func TestHTTPSink_RejectedTrigger(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid condition"}`))
	}))
	defer server.Close()

	s, err := sink.NewHTTPSink(sink.HTTPSinkConfig{URL: server.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	err = s.Send(context.Background(), sampleTrigger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 422")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestHTTPSink_RegistersHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	s, err := sink.NewHTTPSink(sink.HTTPSinkConfig{URL: server.URL, Registry: registry, Logger: zerolog.Nop()})
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), sampleTrigger()))

	health := registry.GetHealth("alert-sink-http")
	require.NotNil(t, health)
	assert.True(t, health.IsHealthy())
	assert.NotNil(t, health.LastSuccessAt)
}

type fakeChannel struct {
	mu        sync.Mutex
	published []amqp.Publishing
	confirms  chan amqp.Confirmation
	ack       bool
	err       error
	closed    bool
}

func newFakeChannel(ack bool) *fakeChannel {
	return &fakeChannel{confirms: make(chan amqp.Confirmation, 16), ack: ack}
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, msg)
	c.confirms <- amqp.Confirmation{DeliveryTag: uint64(len(c.published)), Ack: c.ack}
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestRabbitMQSink_Send(t *testing.T) {
	ch := newFakeChannel(true)
	s := sink.NewRabbitMQSinkWithChannel(ch, ch.confirms, "alerts", "alert.trigger")

	require.NoError(t, s.Send(context.Background(), sampleTrigger()))
	require.NoError(t, s.Send(context.Background(), alert.NewCancelTrigger("HC-123-default-backend")))

	require.Len(t, ch.published, 2)
	first := ch.published[0]
	assert.Equal(t, sink.ContentType, first.ContentType)
	assert.Equal(t, amqp.Persistent, first.DeliveryMode)
	assert.Equal(t, "HC-123-default-backend", first.MessageId)
	assert.Equal(t, "trigger", first.Type)

	var decoded alert.Trigger
	require.NoError(t, json.Unmarshal(first.Body, &decoded))
	assert.Equal(t, sampleTrigger(), decoded)

	assert.Equal(t, "trigger.cancel", ch.published[1].Type)

	require.NoError(t, s.Close())
	assert.True(t, ch.closed)
}

func TestRabbitMQSink_Nack(t *testing.T) {
	ch := newFakeChannel(false)
	s := sink.NewRabbitMQSinkWithChannel(ch, ch.confirms, "alerts", "alert.trigger")

	err := s.Send(context.Background(), sampleTrigger())
	assert.ErrorIs(t, err, sink.ErrPublishNacked)
}

func TestRabbitMQSink_PublishError(t *testing.T) {
	ch := newFakeChannel(true)
	ch.err = amqp.ErrClosed
	s := sink.NewRabbitMQSinkWithChannel(ch, ch.confirms, "alerts", "alert.trigger")

	err := s.Send(context.Background(), sampleTrigger())
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestRabbitMQSink_SkipsStaleConfirms(t *testing.T) {
	confirms := make(chan amqp.Confirmation, 4)
	ch := &silentChannel{}
	s := sink.NewRabbitMQSinkWithChannel(ch, confirms, "alerts", "alert.trigger")

	// A late confirmation for an earlier delivery must not satisfy the next one.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Error(t, s.Send(ctx, sampleTrigger()))

	confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: true}
	confirms <- amqp.Confirmation{DeliveryTag: 2, Ack: false}

	err := s.Send(context.Background(), sampleTrigger())
	assert.ErrorIs(t, err, sink.ErrPublishNacked)
}

// silentChannel accepts publishes without confirming them.
type silentChannel struct{}

func (silentChannel) PublishWithContext(context.Context, string, string, bool, bool, amqp.Publishing) error {
	return nil
}

func (silentChannel) Close() error { return nil }

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink_Send(t *testing.T) {
	writer := &fakeWriter{}
	s, err := sink.NewKafkaSink(sink.KafkaSinkConfig{Writer: writer, Logger: zerolog.Nop()})
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), sampleTrigger()))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, []byte("HC-123-default-backend"), msg.Key)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "trigger", headers["type"])
	assert.Equal(t, sink.ContentType, headers["content-type"])

	var decoded alert.Trigger
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, sampleTrigger(), decoded)

	require.NoError(t, s.Close())
	assert.True(t, writer.closed)
}

func TestKafkaSink_WriteError(t *testing.T) {
	writer := &fakeWriter{err: kafka.LeaderNotAvailable}
	s, err := sink.NewKafkaSink(sink.KafkaSinkConfig{Writer: writer, Logger: zerolog.Nop()})
	require.NoError(t, err)

	err = s.Send(context.Background(), sampleTrigger())
	assert.ErrorIs(t, err, kafka.LeaderNotAvailable)
}

// flakySink fails a fixed number of times before succeeding.
type flakySink struct {
	failures int
	calls    int
	closed   bool
}

func (s *flakySink) Send(context.Context, alert.Trigger) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("broker unavailable")
	}
	return nil
}

func (s *flakySink) Close() error {
	s.closed = true
	return nil
}

func fastExecutor(name string, registry *resilience.Registry) *resilience.Executor {
	cfg := resilience.DefaultExecutorConfig(name)
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 5 * time.Millisecond
	cfg.Registry = registry
	return resilience.NewExecutor(cfg)
}

func TestResilient_RetriesTransientFailures(t *testing.T) {
	next := &flakySink{failures: 2}
	registry := resilience.NewRegistry()
	s := sink.NewResilient(next, sink.ResilientConfig{Executor: fastExecutor("alert-sink-test", registry)})

	require.NoError(t, s.Send(context.Background(), sampleTrigger()))
	assert.Equal(t, 3, next.calls)

	health := registry.GetHealth("alert-sink-test")
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)

	require.NoError(t, s.Close())
	assert.True(t, next.closed)
}

func TestResilient_GivesUp(t *testing.T) {
	next := &flakySink{failures: 100}
	s := sink.NewResilient(next, sink.ResilientConfig{Executor: fastExecutor("alert-sink-test", nil)})

	err := s.Send(context.Background(), sampleTrigger())
	require.Error(t, err)
	assert.Equal(t, 4, next.calls)
}
