package alert

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/gatewayplane/gatewayplane/internal/alert"

// Skip reasons recorded on alert.trigger.skipped.
const (
	SkipReasonNoOwnerEmail = "no_owner_email"
)

// Metrics holds the OpenTelemetry instruments for trigger coordination.
// A nil *Metrics records nothing.
type Metrics struct {
	sent         metric.Int64Counter
	cancelled    metric.Int64Counter
	skipped      metric.Int64Counter
	failed       metric.Int64Counter
	sinkDuration metric.Float64Histogram
}

// NewMetrics creates the trigger coordination instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	sent, err := meter.Int64Counter(
		"alert.trigger.sent",
		metric.WithDescription("Number of health-check triggers registered with the alert engine"),
		metric.WithUnit("{trigger}"),
	)
	if err != nil {
		return nil, err
	}

	cancelled, err := meter.Int64Counter(
		"alert.trigger.cancelled",
		metric.WithDescription("Number of health-check triggers cancelled on the alert engine"),
		metric.WithUnit("{trigger}"),
	)
	if err != nil {
		return nil, err
	}

	skipped, err := meter.Int64Counter(
		"alert.trigger.skipped",
		metric.WithDescription("Number of eligible triggers that could not be built"),
		metric.WithUnit("{trigger}"),
	)
	if err != nil {
		return nil, err
	}

	failed, err := meter.Int64Counter(
		"alert.sink.failed",
		metric.WithDescription("Number of trigger messages the alert sink rejected"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	sinkDuration, err := meter.Float64Histogram(
		"alert.sink.duration",
		metric.WithDescription("Duration of alert sink sends in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		sent:         sent,
		cancelled:    cancelled,
		skipped:      skipped,
		failed:       failed,
		sinkDuration: sinkDuration,
	}, nil
}

func (m *Metrics) recordSend(ctx context.Context, t Trigger, duration time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("cancel", t.Cancel))
	m.sinkDuration.Record(ctx, duration.Seconds(), attrs)

	switch {
	case err != nil:
		m.failed.Add(ctx, 1, attrs)
	case t.Cancel:
		m.cancelled.Add(ctx, 1)
	default:
		m.sent.Add(ctx, 1)
	}
}

func (m *Metrics) recordSkip(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.skipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
