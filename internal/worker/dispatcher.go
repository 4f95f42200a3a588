// Package worker consumes API lifecycle events from other processes and keeps
// health-check triggers in sync with them.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/apis"
	"github.com/gatewayplane/gatewayplane/internal/events"
)

// ErrMalformedMessage is returned when a message is not a valid envelope.
var ErrMalformedMessage = errors.New("malformed message")

// Triggerer registers health-check triggers.
type Triggerer interface {
	TriggerAPIHC(ctx context.Context, api *apis.API) error
	TriggerAll(ctx context.Context) error
}

// Dispatcher routes decoded envelopes to the trigger coordinator.
type Dispatcher struct {
	triggers Triggerer
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(triggers Triggerer, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{triggers: triggers, logger: logger}
}

// Dispatch handles one raw message. A nil error means the message is done with
// and can be acknowledged, including messages of unknown type.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte) error {
	var envelope events.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	logger := d.logger.With().
		Str("envelope_id", envelope.ID.String()).
		Str("type", envelope.Type).
		Logger()

	switch {
	case envelope.Type == events.MessageAPIUpdated:
		event, err := envelope.Event()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if event.Type != apis.EventUpdate {
			logger.Debug().Str("event_type", string(event.Type)).Msg("ignoring non-update event")
			return nil
		}
		if err := d.triggers.TriggerAPIHC(ctx, event.API); err != nil {
			return fmt.Errorf("trigger api %s: %w", event.API.ID, err)
		}
		return nil

	case envelope.Type == events.MessageAlertsResync:
		if err := d.triggers.TriggerAll(ctx); err != nil {
			return fmt.Errorf("resync triggers: %w", err)
		}
		return nil

	case envelope.IsAPIEvent():
		logger.Debug().Msg("ignoring api event")
		return nil

	default:
		logger.Warn().Msg("unknown message type")
		return nil
	}
}
