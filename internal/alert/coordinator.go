package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/apis"
	"github.com/gatewayplane/gatewayplane/internal/events"
)

// Service exposes the trigger operations to synchronous callers.
type Service interface {
	// TriggerAPIHC registers a trigger for every health-checked endpoint of the API
	// that has not been registered yet.
	TriggerAPIHC(ctx context.Context, api *apis.API) error

	// CancelTriggerAPIHC cancels every registered trigger of the API.
	CancelTriggerAPIHC(ctx context.Context, api *apis.API) error

	// TriggerAll forgets all registered triggers and registers them again for every known API.
	TriggerAll(ctx context.Context) error
}

// Directory resolves API definitions.
type Directory interface {
	FindAll(ctx context.Context) ([]*apis.API, error)
	FindByID(ctx context.Context, id string) (*apis.API, error)
}

// Sink delivers trigger messages to the alert engine.
type Sink interface {
	Send(ctx context.Context, trigger Trigger) error
}

// EventSource delivers API lifecycle events to subscribers.
type EventSource interface {
	Subscribe(h events.Handler)
}

// CoordinatorConfig holds configuration for the coordinator.
type CoordinatorConfig struct {
	Directory Directory
	Sink      Sink
	Settings  Settings
	Logger    zerolog.Logger
	Metrics   *Metrics // optional
}

// Coordinator decides when health-check triggers are sent, updated or cancelled.
// It implements both Service and events.Handler.
type Coordinator struct {
	directory Directory
	sink      Sink
	logger    zerolog.Logger
	metrics   *Metrics
	triggers  *TriggerSet

	settingsMu sync.RWMutex
	settings   Settings
}

// NewCoordinator creates a coordinator with an empty trigger set.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{
		directory: cfg.Directory,
		sink:      cfg.Sink,
		logger:    cfg.Logger.With().Str("component", "alert_trigger").Logger(),
		metrics:   cfg.Metrics,
		triggers:  NewTriggerSet(),
		settings:  cfg.Settings,
	}
}

// Subscribe registers the coordinator for API events when alerting is enabled.
// It reports whether a subscription was made.
func (c *Coordinator) Subscribe(source EventSource, enabled bool) bool {
	if !enabled {
		c.logger.Info().Msg("health-check alerting disabled, not subscribing to api events")
		return false
	}
	source.Subscribe(c)
	c.logger.Info().Msg("subscribed to api events")
	return true
}

// HandleEvent triggers health-check alerts for updated APIs. Other events are ignored.
func (c *Coordinator) HandleEvent(ctx context.Context, event apis.Event) {
	if event.Type != apis.EventUpdate || event.API == nil {
		return
	}

	if err := c.TriggerAPIHC(ctx, event.API); err != nil {
		c.logger.Error().
			Err(err).
			Str("api_id", event.API.ID).
			Str("event_id", event.ID).
			Msg("failed to trigger health-check alerts")
	}
}

// TriggerAPIHC sends one trigger per health-checked endpoint not already registered.
// Endpoints are visited in group order, then endpoint order. An owner whose email is
// unset is logged and skipped, leaving the endpoint eligible for a later call.
// Sink failures leave the endpoint unregistered and are returned joined.
func (c *Coordinator) TriggerAPIHC(ctx context.Context, api *apis.API) error {
	pending, err := c.pendingTriggers(ctx, api)
	if err != nil {
		return err
	}

	var errs []error
	for _, t := range pending {
		if err := c.send(ctx, t); err != nil {
			c.triggers.Release(t.ID)
			errs = append(errs, fmt.Errorf("send trigger %s: %w", t.ID, err))
			continue
		}
		c.triggers.CommitAdd(t.ID)

		c.logger.Debug().
			Str("api_id", api.ID).
			Str("trigger_id", t.ID).
			Msg("trigger sent")
	}

	return errors.Join(errs...)
}

// pendingTriggers builds the triggers to send and reserves their identifiers.
func (c *Coordinator) pendingTriggers(ctx context.Context, api *apis.API) ([]Trigger, error) {
	settings := c.Settings()

	var (
		pending    []Trigger
		emailJSON  string
		jsonLoaded bool
	)

	for _, group := range api.Proxy.Groups {
		if len(group.Endpoints) == 0 {
			continue
		}

		for _, endpoint := range group.Endpoints {
			if !endpoint.HealthCheckEnabled() {
				continue
			}

			id := TriggerID(api.ID, group.Name, endpoint.Name)
			if c.triggers.Contains(id) {
				continue
			}

			if api.PrimaryOwner.Email == nil {
				c.logger.Warn().
					Str("owner", api.PrimaryOwner.DisplayName).
					Str("api_id", api.ID).
					Str("trigger_id", id).
					Msg("alert cannot be sent because the API owner has no configured email")
				c.metrics.recordSkip(ctx, SkipReasonNoOwnerEmail)
				continue
			}

			if !jsonLoaded {
				var err error
				emailJSON, err = settings.Email.JSON()
				if err != nil {
					c.releaseAll(pending)
					return nil, err
				}
				jsonLoaded = true
			}

			if !c.triggers.ReserveAdd(id) {
				continue
			}

			pending = append(pending, Trigger{
				ID:             id,
				Name:           TriggerName,
				Condition:      Condition(api.ID, group.Name, endpoint.Name),
				ViewDetailsURL: DetailsURL(settings.PortalURL, api.ID),
				Notifications: []Notification{{
					Type:              NotificationTypeEmail,
					Destination:       api.OwnerEmail(),
					JSONConfiguration: emailJSON,
				}},
			})
		}
	}

	return pending, nil
}

// CancelTriggerAPIHC sends a cancellation for every registered trigger of the API.
// Identifiers are derived for all endpoints regardless of their health check setting,
// so disabling a health check cancels its trigger.
func (c *Coordinator) CancelTriggerAPIHC(ctx context.Context, api *apis.API) error {
	var pending []string
	for _, group := range api.Proxy.Groups {
		if len(group.Endpoints) == 0 {
			continue
		}
		for _, endpoint := range group.Endpoints {
			id := TriggerID(api.ID, group.Name, endpoint.Name)
			if c.triggers.ReserveRemove(id) {
				pending = append(pending, id)
			}
		}
	}

	var errs []error
	for _, id := range pending {
		c.logger.Info().Str("trigger_id", id).Msg("sending trigger cancel message")

		if err := c.send(ctx, NewCancelTrigger(id)); err != nil {
			c.triggers.Release(id)
			errs = append(errs, fmt.Errorf("cancel trigger %s: %w", id, err))
			continue
		}
		c.triggers.CommitRemove(id)

		c.logger.Info().Str("trigger_id", id).Msg("trigger cancel message sent")
	}

	return errors.Join(errs...)
}

// TriggerAll clears the trigger set and triggers every API known to the directory.
// A failure for one API does not stop the others.
func (c *Coordinator) TriggerAll(ctx context.Context) error {
	c.triggers.Clear()

	all, err := c.directory.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("list apis: %w", err)
	}

	c.logger.Info().Int("apis", len(all)).Msg("resynchronizing health-check triggers")

	var errs []error
	for _, api := range all {
		if err := c.TriggerAPIHC(ctx, api); err != nil {
			errs = append(errs, fmt.Errorf("api %s: %w", api.ID, err))
		}
	}

	c.logger.Info().
		Int("active_triggers", c.triggers.Len()).
		Int("failed_apis", len(errs)).
		Msg("health-check trigger resynchronization completed")

	return errors.Join(errs...)
}

// ActiveTriggers returns the registered trigger identifiers in sorted order.
func (c *Coordinator) ActiveTriggers() []string {
	return c.triggers.Snapshot()
}

// Settings returns the settings used to build triggers.
func (c *Coordinator) Settings() Settings {
	c.settingsMu.RLock()
	defer c.settingsMu.RUnlock()
	return c.settings
}

// UpdateSettings replaces the settings used for triggers built from now on.
func (c *Coordinator) UpdateSettings(settings Settings) {
	c.settingsMu.Lock()
	c.settings = settings
	c.settingsMu.Unlock()
}

// Reload swaps in new settings and, when enabled, resynchronizes every trigger
// with them. A disabled coordinator only stores the settings.
func (c *Coordinator) Reload(ctx context.Context, settings Settings, enabled bool) error {
	c.UpdateSettings(settings)
	if !enabled {
		c.logger.Debug().Msg("alerting disabled, skipping resync after settings change")
		return nil
	}
	return c.TriggerAll(ctx)
}

func (c *Coordinator) send(ctx context.Context, t Trigger) error {
	start := time.Now()
	err := c.sink.Send(ctx, t)
	c.metrics.recordSend(ctx, t, time.Since(start), err)
	return err
}

func (c *Coordinator) releaseAll(pending []Trigger) {
	for _, t := range pending {
		c.triggers.Release(t.ID)
	}
}

// Ensure Coordinator implements Service and events.Handler.
var (
	_ Service        = (*Coordinator)(nil)
	_ events.Handler = (*Coordinator)(nil)
)
