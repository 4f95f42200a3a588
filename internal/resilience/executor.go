package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for resilient operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// ExecutorConfig holds configuration for an Executor.
type ExecutorConfig struct {
	// Name identifies the guarded dependency.
	Name string

	// MaxRetries is the maximum number of retry attempts after the first call.
	// Default: 3
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 5 seconds
	MaxInterval time.Duration

	// CircuitBreaker is the circuit breaker configuration.
	// If nil, uses DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig

	// Registry receives success and failure reports. Optional.
	Registry *Registry
}

// DefaultExecutorConfig returns sensible defaults for an executor.
func DefaultExecutorConfig(name string) ExecutorConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ExecutorConfig{
		Name:            name,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		CircuitBreaker:  &cb,
	}
}

// Executor runs operations behind a circuit breaker and retries transient failures
// with exponential backoff.
type Executor struct {
	name     string
	breaker  *gobreaker.CircuitBreaker[struct{}]
	config   ExecutorConfig
	registry *Registry
}

// NewExecutor creates an executor and registers it when a registry is configured.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	cbConfig := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}

	e := &Executor{
		name:     cfg.Name,
		breaker:  newBreaker(cbConfig),
		config:   cfg,
		registry: cfg.Registry,
	}

	if e.registry != nil {
		e.registry.Register(cfg.Name, e)
	}

	return e
}

// Permanent marks an error as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Execute calls op until it succeeds, returns a permanent error, the retries are
// exhausted, the context is done or the circuit opens.
func (e *Executor) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.config.InitialInterval
	bo.MaxInterval = e.config.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, e.config.MaxRetries), ctx)

	err := backoff.Retry(func() error {
		_, err := e.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, op(ctx)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		return err
	}, policy)

	e.record(err)
	return err
}

func (e *Executor) record(err error) {
	if e.registry == nil {
		return
	}
	if err != nil {
		e.registry.RecordFailure(e.name, err)
		return
	}
	e.registry.RecordSuccess(e.name)
}

// Name returns the name of the guarded dependency.
func (e *Executor) Name() string {
	return e.name
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (e *Executor) CircuitBreakerState() gobreaker.State {
	return e.breaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (e *Executor) CircuitBreakerCounts() gobreaker.Counts {
	return e.breaker.Counts()
}
