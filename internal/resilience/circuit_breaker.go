// Package resilience guards calls to external systems with circuit breakers,
// timeouts and retries.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig tunes the breaker in front of one dependency.
// Zero MaxRequests and Timeout fall back to gobreaker's own defaults.
type CircuitBreakerConfig struct {
	Name        string
	MaxRequests uint32        // probes allowed while half-open
	Interval    time.Duration // count reset period while closed, 0 never resets
	Timeout     time.Duration // open period before probing again

	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultCircuitBreakerConfig is the breaker used in front of alert engine sinks.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

const (
	tripMinRequests = 5
	tripFailureRate = 0.5
)

// DefaultReadyToTrip opens the circuit once half of at least five requests failed.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	return counts.Requests >= tripMinRequests &&
		float64(counts.TotalFailures) >= tripFailureRate*float64(counts.Requests)
}

func newBreaker(cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[struct{}] {
	trip := cfg.ReadyToTrip
	if trip == nil {
		trip = DefaultReadyToTrip
	}

	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   trip,
		OnStateChange: cfg.OnStateChange,
	})
}
