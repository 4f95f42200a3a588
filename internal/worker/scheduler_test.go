package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewayplane/gatewayplane/internal/worker"
)

type resyncFunc func(ctx context.Context) error

func (f resyncFunc) TriggerAll(ctx context.Context) error { return f(ctx) }

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	_, err := worker.NewScheduler(worker.SchedulerConfig{
		Schedule: "every now and then",
		Resyncer: &fakeTriggerer{},
		Logger:   zerolog.Nop(),
	})
	assert.Error(t, err)
}

func TestScheduler_RunOnce(t *testing.T) {
	triggers := &fakeTriggerer{}
	s, err := worker.NewScheduler(worker.SchedulerConfig{
		Schedule: "@every 1h",
		Resyncer: triggers,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, triggers.resyncs)
}

func TestScheduler_RunOnceError(t *testing.T) {
	resyncErr := errors.New("list apis: connection refused")
	s, err := worker.NewScheduler(worker.SchedulerConfig{
		Schedule: "@every 1h",
		Resyncer: &fakeTriggerer{err: resyncErr},
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, s.RunOnce(context.Background()), resyncErr)
}

func TestScheduler_RunOnceTimeout(t *testing.T) {
	var deadline time.Time
	s, err := worker.NewScheduler(worker.SchedulerConfig{
		Schedule: "@every 1h",
		Timeout:  time.Minute,
		Resyncer: resyncFunc(func(ctx context.Context) error {
			deadline, _ = ctx.Deadline()
			return nil
		}),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := worker.NewScheduler(worker.SchedulerConfig{
		Schedule: "@every 1h",
		Resyncer: &fakeTriggerer{},
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	s.Start()
	next := s.Next()
	s.Stop()

	assert.WithinDuration(t, time.Now().Add(time.Hour), next, time.Minute)
}
