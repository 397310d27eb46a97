package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

type Specs struct {
	Publish      string
	Sync         string
	TokenRefresh string
}

var DefaultSpecs = Specs{
	Publish:      "@every 1m",
	Sync:         "@every 1h",
	TokenRefresh: "@every 10m",
}

var ErrSchedulerRunning = errors.New("scheduler is already running")

// Scheduler owns the recurring cycles. Each cycle skips a tick while its
// previous tick is still running, and the cycles run independently.
type Scheduler struct {
	mu         sync.Mutex
	engine     *cron.Cron
	running    bool
	registered bool

	specs   Specs
	publish cron.Job
	sync    cron.Job
	refresh cron.Job
}

// NewScheduler builds the scheduler; refresh may be nil.
func NewScheduler(specs Specs, publish, sync, refresh cron.Job) *Scheduler {
	logger := slogCronLogger{}
	return &Scheduler{
		engine: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		specs:   specs,
		publish: publish,
		sync:    sync,
		refresh: refresh,
	}
}

func (s *Scheduler) register() error {
	if _, err := s.engine.AddJob(s.specs.Publish, s.publish); err != nil {
		return fmt.Errorf("register publish job: %w", err)
	}
	if _, err := s.engine.AddJob(s.specs.Sync, s.sync); err != nil {
		return fmt.Errorf("register engagement sync job: %w", err)
	}
	if s.refresh != nil {
		if _, err := s.engine.AddJob(s.specs.TokenRefresh, s.refresh); err != nil {
			return fmt.Errorf("register token refresh job: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerRunning
	}
	if !s.registered {
		if err := s.register(); err != nil {
			return err
		}
		s.registered = true
	}

	s.engine.Start()
	s.running = true
	slog.Info("scheduler started", "publish", s.specs.Publish, "sync", s.specs.Sync, "token_refresh", s.specs.TokenRefresh)
	return nil
}

// Stop halts the timers and waits for running ticks to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	done := s.engine.Stop()
	s.mu.Unlock()

	select {
	case <-done.Done():
		slog.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

type slogCronLogger struct{}

func (slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
