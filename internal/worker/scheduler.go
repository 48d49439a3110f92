// Package worker holds the scheduled jobs: cache warming and the Google Sheets
// import.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"fintrax/internal/log"
)

// Job is one unit of scheduled work. It receives the scheduler's context.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on six-field (seconds first) cron specs. A run
// that is still going when its next tick fires is skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *log.Logger

	mu   sync.Mutex
	jobs map[string]Job
}

func NewScheduler(ctx context.Context, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentWorker)
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx:    ctx,
		logger: logger,
		jobs:   make(map[string]Job),
	}
}

// Register schedules job under name. An empty spec registers the job for
// RunNow only.
func (s *Scheduler) Register(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	if spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
			return fmt.Errorf("register %s job: %w", name, err)
		}
	}
	s.jobs[name] = job
	return nil
}

// RunNow executes a registered job synchronously, outside the schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) error {
	start := time.Now()
	err := job(s.ctx)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.ErrorContext(s.ctx, "Scheduled job failed",
			log.FieldJob, name,
			log.FieldError, err,
			log.FieldDuration, elapsed.Milliseconds())
		return err
	}
	s.logger.InfoContext(s.ctx, "Scheduled job completed",
		log.FieldJob, name,
		log.FieldDuration, elapsed.Milliseconds())
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with jobs still running")
	}
}

// cronLogger routes cron's own messages through the component logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{log.FieldError, err}, keysAndValues...)...)
}
