// Package janitor runs the background sweeps that keep memory and
// disk bounded: expired cache entries, idle rate limiter identities,
// and retention pruning of conversation and usage stores.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named sweep run on a cron schedule. Run returns the number
// of items removed.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Schedule is a standard cron expression, e.g. "*/5 * * * *".
	// An empty schedule disables the job.
	Schedule string

	// Run executes one sweep.
	Run func(ctx context.Context) (int, error)
}

// Janitor schedules sweep jobs with cron. Jobs are registered before
// Start and share the lifetime of the context passed to Start.
type Janitor struct {
	cron    *cron.Cron
	jobs    []Job
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// New creates an empty janitor.
func New() *Janitor {
	return &Janitor{
		cron:   cron.New(),
		logger: slog.Default().With("component", "janitor"),
	}
}

// Register adds a job. The schedule is validated at Start.
func (j *Janitor) Register(job Job) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jobs = append(j.jobs, job)
}

// Start validates every registered schedule and begins running jobs.
// Jobs with an empty schedule are skipped. The janitor stops when ctx
// is cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	scheduled := 0
	for _, job := range j.jobs {
		if job.Schedule == "" {
			j.logger.Info("sweep not scheduled", "job", job.Name)
			continue
		}

		if _, err := cron.ParseStandard(job.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule %q for job %s: %w",
				job.Schedule, job.Name, err)
		}

		job := job
		_, err := j.cron.AddFunc(job.Schedule, func() {
			j.runJob(ctx, job)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
		}
		scheduled++
	}

	j.cron.Start()
	j.running = true

	j.logger.Info("janitor started", "scheduled_jobs", scheduled)

	go func() {
		<-ctx.Done()
		j.Stop()
	}()

	return nil
}

func (j *Janitor) runJob(ctx context.Context, job Job) {
	start := time.Now()

	removed, err := job.Run(ctx)
	if err != nil {
		j.logger.Error("sweep failed",
			"job", job.Name,
			"error", err,
		)
		return
	}

	if removed > 0 {
		j.logger.Info("sweep completed",
			"job", job.Name,
			"removed", removed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		j.logger.Debug("sweep completed, nothing removed", "job", job.Name)
	}
}

// Stop stops the scheduler and waits for running jobs to finish.
// Stop is safe to call more than once.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron != nil && j.running {
		ctx := j.cron.Stop()
		<-ctx.Done()
		j.running = false
		j.logger.Info("janitor stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// NextRun returns the earliest next scheduled sweep time, or nil when
// nothing is scheduled.
func (j *Janitor) NextRun() *time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries := j.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	for _, e := range entries[1:] {
		if e.Next.Before(next) {
			next = e.Next
		}
	}
	return &next
}
