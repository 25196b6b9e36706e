package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/delixor/shadowbot/internal/core"
	"github.com/robfig/cron/v3"
)

// parser accepts standard 5-field expressions.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule reports whether expr is a valid 5-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("cron: invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Scheduler manages periodic job execution using cron expressions.
// Each job is protected by a per-job mutex to prevent parallel execution
// of the same job. A failing or panicking run is logged and the next tick
// runs as usual.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	names  map[string]struct{}
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		names:  make(map[string]struct{}),
		locks:  make(map[string]*sync.Mutex),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// ModuleInfo implements core.Module.
func (s *Scheduler) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

// RegisterJob adds a job to the scheduler. Must be called before Start().
// Returns an error if a job with the same name is already registered.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}

	s.names[name] = struct{}{}
	s.locks[name] = &sync.Mutex{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Start initializes the cron scheduler and begins executing registered jobs.
// Returns an error if any job has an invalid schedule expression.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron = cron.New(cron.WithParser(parser))

	for _, job := range s.jobs {
		if _, err := s.cron.AddFunc(job.Schedule(), func() { s.run(job) }); err != nil {
			return fmt.Errorf("cron: invalid schedule for job %q: %w", job.Name(), err)
		}
	}

	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.jobs))
	return nil
}

// Trigger runs the named job immediately in the background, outside its
// schedule. It is skipped like a tick when the job is already running.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	var found Job
	for _, j := range s.jobs {
		if j.Name() == name {
			found = j
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return fmt.Errorf("cron: unknown job %q", name)
	}
	go s.run(found)
	return nil
}

// run executes one tick of job under its lock.
func (s *Scheduler) run(job Job) {
	lock := s.locks[job.Name()]
	// TryLock is atomic: if the previous tick is still running, skip this one.
	if !lock.TryLock() {
		s.logger.Warn("cron: job still running, skipping tick", "job", job.Name())
		return
	}
	defer lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cron: job panicked", "job", job.Name(), "panic", r)
		}
	}()

	s.logger.Debug("cron: job started", "job", job.Name())
	if err := job.Run(s.ctx); err != nil {
		s.logger.Error("cron: job failed",
			"job", job.Name(),
			"error", err,
		)
		return
	}
	s.logger.Debug("cron: job completed", "job", job.Name())
}

// Stop gracefully shuts down the scheduler, waiting for in-flight jobs.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("cron: scheduler stopped")
	}
	return nil
}
