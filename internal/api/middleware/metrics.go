package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/gatewayplane/gatewayplane/internal/api/middleware"

// Metrics records OpenTelemetry HTTP server metrics.
type Metrics struct {
	duration     metric.Float64Histogram
	requests     metric.Int64Counter
	inFlight     metric.Int64UpDownCounter
	responseSize metric.Int64Histogram
}

// NewMetrics creates the HTTP server instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	var m Metrics
	var errs [4]error
	m.duration, errs[0] = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"), metric.WithUnit("s"))
	m.requests, errs[1] = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("HTTP server requests served"), metric.WithUnit("{request}"))
	m.inFlight, errs[2] = meter.Int64UpDownCounter("http.server.requests_in_flight",
		metric.WithDescription("HTTP server requests being processed"), metric.WithUnit("{request}"))
	m.responseSize, errs[3] = meter.Int64Histogram("http.server.response.size",
		metric.WithDescription("Size of HTTP server response bodies"), metric.WithUnit("By"))

	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &m, nil
}

// Middleware records one data point per request, labelled by route template
// rather than raw path so that API IDs do not explode cardinality.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()

			method := attribute.String("http.request.method", r.Method)
			m.inFlight.Add(ctx, 1, metric.WithAttributes(method))
			defer m.inFlight.Add(ctx, -1, metric.WithAttributes(method))

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			attrs := metric.WithAttributes(
				method,
				attribute.String("http.route", routePattern(r)),
				attribute.String("http.response.status_code", strconv.Itoa(rec.status)),
				attribute.Bool("error", rec.status >= http.StatusBadRequest),
			)
			m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			m.requests.Add(ctx, 1, attrs)
			m.responseSize.Record(ctx, rec.bytes, attrs)
		})
	}
}

// DependencyMetrics records calls to backing stores and cache lookups.
type DependencyMetrics struct {
	duration metric.Float64Histogram
	lookups  metric.Int64Counter
}

func NewDependencyMetrics() (*DependencyMetrics, error) {
	meter := otel.Meter(meterName)

	duration, err := meter.Float64Histogram("dependency.request.duration",
		metric.WithDescription("Duration of calls to backing stores"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	lookups, err := meter.Int64Counter("dependency.cache.lookups",
		metric.WithDescription("Cache lookups, split by the cache.hit attribute"), metric.WithUnit("{lookup}"))
	if err != nil {
		return nil, err
	}
	return &DependencyMetrics{duration: duration, lookups: lookups}, nil
}

// RecordRequest records one call. The histogram count doubles as the request total.
// A background context is used so cancelled requests are still counted.
func (m *DependencyMetrics) RecordRequest(dependency, operation string, d time.Duration, err error) {
	m.duration.Record(context.Background(), d.Seconds(), metric.WithAttributes(
		attribute.String("dependency.name", dependency),
		attribute.String("dependency.operation", operation),
		attribute.Bool("error", err != nil),
	))
}

func (m *DependencyMetrics) RecordCacheHit(dependency, operation string) {
	m.recordLookup(dependency, operation, true)
}

func (m *DependencyMetrics) RecordCacheMiss(dependency, operation string) {
	m.recordLookup(dependency, operation, false)
}

func (m *DependencyMetrics) recordLookup(dependency, operation string, hit bool) {
	m.lookups.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("dependency.name", dependency),
		attribute.String("dependency.operation", operation),
		attribute.Bool("cache.hit", hit),
	))
}
