package sink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/alert"
)

// LogSink writes triggers to the log instead of an alert engine.
// It is used in development and when no transport is configured.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Send logs the trigger.
func (s *LogSink) Send(_ context.Context, t alert.Trigger) error {
	event := s.logger.Info().
		Str("trigger_id", t.ID).
		Str("type", messageType(t))

	if !t.Cancel {
		event = event.
			Str("condition", t.Condition).
			Str("view_details_url", t.ViewDetailsURL).
			Int("notifications", len(t.Notifications))
	}

	event.Msg("alert trigger")
	return nil
}

// Close does nothing.
func (s *LogSink) Close() error {
	return nil
}

var _ Sink = (*LogSink)(nil)
