// Package scheduler runs a job on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dealer-workers/internal/common/errors"
	"dealer-workers/internal/common/logger"

	"github.com/robfig/cron/v3"
)

// DefaultSpec fires daily at midnight in the configured location.
const DefaultSpec = "0 0 * * *"

// Runner is the unit of work triggered on every tick.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

type Config struct {
	Name       string
	Spec       string
	Location   *time.Location
	RunTimeout time.Duration
}

type Scheduler struct {
	runner Runner
	cfg    Config
	logger logger.Logger

	mu    sync.Mutex
	cron  *cron.Cron
	entry cron.EntryID
}

func New(runner Runner, cfg Config, log logger.Logger) *Scheduler {
	if cfg.Spec == "" {
		cfg.Spec = DefaultSpec
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Name == "" {
		cfg.Name = "job"
	}
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"scheduler": cfg.Name}),
	}
}

// Start registers the schedule. Calling it while already started does nothing.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.logger.Debug("scheduler already started", nil)
		return nil
	}

	cl := cronLogger{log: s.logger}
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddFunc(s.cfg.Spec, s.tick)
	if err != nil {
		return errors.NewConfigInvalidError(fmt.Sprintf("schedule %q: %v", s.cfg.Spec, err))
	}
	c.Start()

	s.cron = c
	s.entry = id
	s.logger.Info("scheduler started", map[string]interface{}{
		"spec":     s.cfg.Spec,
		"location": s.cfg.Location.String(),
		"next":     c.Entry(id).Next.Format(time.RFC3339),
	})
	return nil
}

// Stop removes the schedule. The returned context is done once any in-flight
// run has returned; the run itself is not cancelled.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	s.cron.Remove(s.entry)
	ctx := s.cron.Stop()
	s.cron = nil
	s.entry = 0
	s.logger.Info("scheduler stopped", nil)
	return ctx
}

// Running reports whether the schedule is registered.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// Next returns the next scheduled tick, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// RunNow executes the job once, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}
	return s.runner.Run(ctx)
}

func (s *Scheduler) tick() {
	start := time.Now()
	if err := s.RunNow(context.Background()); err != nil {
		s.logger.WithError(err).Error("scheduled run failed", map[string]interface{}{
			"duration": time.Since(start).String(),
		})
		return
	}
	s.logger.Debug("scheduled run finished", map[string]interface{}{"duration": time.Since(start).String()})
}

// cronLogger routes cron's own messages through the application logger.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, kvFields(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kvFields(keysAndValues)
	fields["error"] = err.Error()
	c.log.Error(msg, fields)
}

func kvFields(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
