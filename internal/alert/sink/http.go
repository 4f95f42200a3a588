package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/alert"
	"github.com/gatewayplane/gatewayplane/internal/resilience"
)

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	URL     string
	Timeout time.Duration
}

// HTTPSinkConfig holds configuration for the HTTP sink.
type HTTPSinkConfig struct {
	URL      string
	Timeout  time.Duration
	Registry *resilience.Registry
	Logger   zerolog.Logger

	// Client overrides the resilient client built from the settings above. Optional.
	Client *resilience.Client
}

// HTTPSink posts triggers to the alert engine's HTTP endpoint.
type HTTPSink struct {
	url    string
	client *resilience.Client
	logger zerolog.Logger
}

// NewHTTPSink creates an HTTP sink.
func NewHTTPSink(cfg HTTPSinkConfig) (*HTTPSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("alert sink http url is required")
	}

	client := cfg.Client
	if client == nil {
		clientCfg := resilience.DefaultClientConfig("alert-sink-http")
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.Registry = cfg.Registry
		client = resilience.NewClient(clientCfg)
	}

	return &HTTPSink{
		url:    cfg.URL,
		client: client,
		logger: cfg.Logger,
	}, nil
}

// Send posts the trigger and expects a 2xx response.
func (s *HTTPSink) Send(ctx context.Context, t alert.Trigger) error {
	body, err := encode(t)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("X-Message-Type", messageType(t))

	resp, err := s.client.DoWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("post trigger %s: %w", t.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Warn().
			Int("status", resp.StatusCode).
			Str("trigger_id", t.ID).
			Str("body", string(snippet)).
			Msg("alert engine rejected trigger")
		return fmt.Errorf("post trigger %s: unexpected status %d", t.ID, resp.StatusCode)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close does nothing.
func (s *HTTPSink) Close() error {
	return nil
}

var _ Sink = (*HTTPSink)(nil)
