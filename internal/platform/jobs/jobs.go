// Package jobs runs the portal's periodic background work on gocron.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Job is a named unit of periodic work. Run receives a context that is
// cancelled when the scheduler stops.
type Job struct {
	Name    string
	Every   time.Duration
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

var ErrUnknownJob = errors.New("unknown job")

// Stats is the last outcome of a job.
type Stats struct {
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastRunAt time.Time `json:"last_run_at"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler owns a gocron scheduler. Jobs never overlap with themselves.
type Scheduler struct {
	cron   *gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger

	mu    sync.Mutex
	jobs  map[string]Job
	stats map[string]*Stats
}

func NewScheduler(logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   gocron.NewScheduler(time.UTC),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With().Str("component", "jobs").Logger(),
		jobs:   make(map[string]Job),
		stats:  make(map[string]*Stats),
	}
}

// Add registers job. Jobs are not run at registration, only on their interval.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job name and run func are required")
	}
	if job.Every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}

	s.mu.Lock()
	if _, dup := s.jobs[job.Name]; dup {
		s.mu.Unlock()
		return fmt.Errorf("job %s already registered", job.Name)
	}
	s.jobs[job.Name] = job
	s.stats[job.Name] = &Stats{}
	s.mu.Unlock()

	_, err := s.cron.Every(job.Every).
		WaitForSchedule().
		SingletonMode().
		Tag(job.Name).
		Do(func() { _ = s.execute(s.ctx, job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name, err)
	}
	return nil
}

// RunNow executes a registered job synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(ctx)

	s.mu.Lock()
	st := s.stats[job.Name]
	st.Runs++
	st.LastRunAt = start.UTC()
	st.LastError = ""
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	}
	s.mu.Unlock()

	evt := s.logger.Debug()
	if err != nil {
		evt = s.logger.Error().Err(err)
	}
	evt.Str("job", job.Name).Dur("duration", time.Since(start)).Msg("job finished")
	return err
}

// Stats returns a copy of the per-job counters.
func (s *Scheduler) Stats() map[string]Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Stats, len(s.stats))
	for name, st := range s.stats {
		out[name] = *st
	}
	return out
}

func (s *Scheduler) Start() {
	s.cron.StartAsync()
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Stop cancels running jobs' context and waits for the scheduler to halt.
func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
	s.logger.Info().Msg("scheduler stopped")
}
