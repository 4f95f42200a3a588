package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultResyncTimeout bounds a single scheduled resynchronization.
const DefaultResyncTimeout = 5 * time.Minute

// Resyncer re-registers every health-check trigger.
type Resyncer interface {
	TriggerAll(ctx context.Context) error
}

// SchedulerConfig holds configuration for the resync scheduler.
type SchedulerConfig struct {
	Schedule string
	Resyncer Resyncer
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// Scheduler runs trigger resynchronization on a cron schedule.
// A run still in progress when the next one is due causes that run to be skipped.
type Scheduler struct {
	cron     *cron.Cron
	entry    cron.EntryID
	schedule string
	resyncer Resyncer
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewScheduler parses the schedule and registers the resync job.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultResyncTimeout
	}

	logger := cfg.Logger.With().Str("component", "resync_scheduler").Logger()

	s := &Scheduler{
		schedule: cfg.Schedule,
		resyncer: cfg.Resyncer,
		timeout:  timeout,
		logger:   logger,
	}

	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger}),
		cron.SkipIfStillRunning(cronLogger{logger}),
	))

	entry, err := s.cron.AddFunc(cfg.Schedule, func() {
		_ = s.RunOnce(context.Background()) //nolint:errcheck // logged in RunOnce
	})
	if err != nil {
		return nil, fmt.Errorf("invalid resync schedule %q: %w", cfg.Schedule, err)
	}
	s.entry = entry

	return s, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.schedule).
		Time("next_run", s.Next()).
		Msg("resync scheduler started")
}

// Stop halts the schedule and waits for a running resync to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("resync scheduler stopped")
}

// Next returns the next scheduled run, or the zero time when the scheduler is not running.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// RunOnce performs one resynchronization bounded by the configured timeout.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.resyncer.TriggerAll(ctx); err != nil {
		s.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("scheduled resync failed")
		return err
	}

	s.logger.Info().Dur("duration", time.Since(start)).Msg("scheduled resync completed")
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
