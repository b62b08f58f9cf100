package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vznosBot/internal/models"
)

// Logger is a minimal logger interface required by the worker.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// HandlerFunc consumes one delivered payload. Returning nil acknowledges the
// job; returning an error signals a transient failure eligible for retry.
// Handlers are invoked at-least-once and must be idempotent.
type HandlerFunc func(ctx context.Context, payload []byte) error

// JobsRepository is the queue access the worker needs.
type JobsRepository interface {
	ClaimDue(ctx context.Context, jobType string, limit int, now time.Time) ([]models.ScheduledJob, error)
	Complete(ctx context.Context, id int64) error
	Retry(ctx context.Context, id int64, notBefore time.Time, lastErr string) error
	Fail(ctx context.Context, id int64, lastErr string) error
}

// Config holds worker tuning parameters.
type Config struct {
	// Tick is the polling interval.
	Tick time.Duration
	// BatchSize limits jobs claimed per type per tick.
	BatchSize int
	// MaxAttempts caps delivery attempts before a job is marked failed.
	MaxAttempts int
	// RetryBackoff is multiplied by the attempt count for the next delivery.
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = 15 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Minute
	}
	return c
}

// Worker polls the queue and dispatches due jobs to subscribed handlers.
type Worker struct {
	jobs     JobsRepository
	logger   Logger
	cfg      Config
	handlers map[string]HandlerFunc
	types    []string
}

// NewWorker constructs a Worker.
func NewWorker(jobs JobsRepository, logger Logger, cfg Config) *Worker {
	return &Worker{
		jobs:     jobs,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		handlers: make(map[string]HandlerFunc),
	}
}

// Subscribe registers a handler for a job type. Must be called before Run.
func (w *Worker) Subscribe(jobType string, h HandlerFunc) {
	if _, ok := w.handlers[jobType]; !ok {
		w.types = append(w.types, jobType)
	}
	w.handlers[jobType] = h
}

// Run starts the polling loop and blocks until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Tick)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	now := time.Now()
	for _, jobType := range w.types {
		jobs, err := w.jobs.ClaimDue(ctx, jobType, w.cfg.BatchSize, now)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Errorf("jobqueue: claim %s failed: %v", jobType, err)
			continue
		}
		for _, job := range jobs {
			if err := w.process(ctx, job); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				w.logger.Errorf("jobqueue: job %d (%s) failed: %v", job.ID, job.JobType, err)
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, job models.ScheduledJob) error {
	handler := w.handlers[job.JobType]
	if handler == nil {
		return w.jobs.Fail(ctx, job.ID, fmt.Sprintf("no handler for job type %s", job.JobType))
	}
	if err := w.invoke(ctx, handler, job.Payload); err != nil {
		if job.Attempts >= w.cfg.MaxAttempts {
			w.logger.Errorf("jobqueue: job %d exhausted %d attempts: %v", job.ID, job.Attempts, err)
			return w.jobs.Fail(ctx, job.ID, err.Error())
		}
		next := time.Now().Add(time.Duration(job.Attempts) * w.cfg.RetryBackoff)
		return w.jobs.Retry(ctx, job.ID, next, err.Error())
	}
	return w.jobs.Complete(ctx, job.ID)
}

// invoke shields the worker loop from panicking handlers; a panic counts as a
// failed attempt like any other error.
func (w *Worker) invoke(ctx context.Context, handler HandlerFunc, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, payload)
}
