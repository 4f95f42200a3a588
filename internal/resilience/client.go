package resilience

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	ExecutorConfig

	// Timeout is the request timeout for individual HTTP calls.
	// Default: 10 seconds
	Timeout time.Duration

	// Transport overrides the default HTTP transport. Optional.
	Transport http.RoundTripper
}

// DefaultClientConfig returns sensible defaults for the resilient client.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		ExecutorConfig: DefaultExecutorConfig(name),
		Timeout:        10 * time.Second,
	}
}

// Client is an HTTP client with circuit breaker and retry logic.
// Network errors and 5xx responses are retried; other responses are returned as is.
type Client struct {
	httpClient *http.Client
	executor   *Executor
}

// NewClient creates a new resilient HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		executor: NewExecutor(cfg.ExecutorConfig),
	}
}

// Do executes an HTTP request with circuit breaker protection and retry logic.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext executes an HTTP request with the given context.
// When every attempt ends in a 5xx the last response is returned without error.
// Returns ErrCircuitOpen if the circuit breaker rejects the call.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastResp *http.Response

	err := c.executor.Execute(ctx, func(ctx context.Context) error {
		if lastResp != nil {
			drain(lastResp)
			lastResp = nil
		}

		attempt, err := cloneRequest(ctx, req)
		if err != nil {
			return Permanent(err)
		}

		resp, err := c.httpClient.Do(attempt)
		if err != nil {
			return err
		}

		lastResp = resp
		if resp.StatusCode >= http.StatusInternalServerError {
			return &ServerError{StatusCode: resp.StatusCode}
		}
		return nil
	})
	if err != nil {
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}

	return lastResp, nil
}

// cloneRequest copies the request for another attempt and rewinds its body.
func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return clone, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// ServerError represents an HTTP 5xx server error.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.executor.Name()
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.executor.CircuitBreakerState()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.executor.CircuitBreakerCounts()
}
