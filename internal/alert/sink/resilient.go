package sink

import (
	"context"

	"github.com/gatewayplane/gatewayplane/internal/alert"
	"github.com/gatewayplane/gatewayplane/internal/resilience"
)

// ResilientConfig holds configuration for the resilient decorator.
type ResilientConfig struct {
	Name     string
	Registry *resilience.Registry

	// Executor overrides the default executor. Optional.
	Executor *resilience.Executor
}

// Resilient retries failed sends with backoff behind a circuit breaker.
type Resilient struct {
	next     Sink
	executor *resilience.Executor
}

// NewResilient wraps a sink.
func NewResilient(next Sink, cfg ResilientConfig) *Resilient {
	executor := cfg.Executor
	if executor == nil {
		execCfg := resilience.DefaultExecutorConfig(cfg.Name)
		execCfg.Registry = cfg.Registry
		executor = resilience.NewExecutor(execCfg)
	}

	return &Resilient{
		next:     next,
		executor: executor,
	}
}

// Send delivers the trigger through the wrapped sink.
func (r *Resilient) Send(ctx context.Context, t alert.Trigger) error {
	return r.executor.Execute(ctx, func(ctx context.Context) error {
		return r.next.Send(ctx, t)
	})
}

// Close closes the wrapped sink.
func (r *Resilient) Close() error {
	return r.next.Close()
}

var _ Sink = (*Resilient)(nil)
