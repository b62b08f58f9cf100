package jobqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"vznosBot/internal/models"
)

// Queue is a durable job queue backed by the scheduled_jobs table. Delivery is
// at-least-once; scheduling deduplicates on the caller-supplied key while a
// job for that key is still pending.
type Queue struct {
	db         *sql.DB
	visibility time.Duration
}

// NewQueue constructs a Queue. The visibility timeout bounds how long a
// claimed job stays invisible before a crashed worker's claim expires and the
// job is redelivered.
func NewQueue(db *sql.DB, visibility time.Duration) *Queue {
	if visibility <= 0 {
		visibility = 5 * time.Minute
	}
	return &Queue{db: db, visibility: visibility}
}

// Schedule enqueues a job for delivery no earlier than notBefore. A second
// call with the same dedupe key while the first job is still scheduled or
// active is absorbed by the partial unique index, so repeated scheduling is
// idempotent rather than a duplicate.
func (q *Queue) Schedule(ctx context.Context, jobType string, payload interface{}, notBefore time.Time, dedupeKey string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (job_type, payload, dedupe_key, not_before, state)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (dedupe_key) WHERE state IN ('scheduled', 'active') DO NOTHING`,
		jobType, body, dedupeKey, notBefore.UTC(), models.JobScheduled)
	return err
}

// ClaimDue atomically claims up to limit due jobs of one type. Claimed jobs
// become active with a fresh visibility deadline; rows already claimed by
// another worker are skipped via FOR UPDATE SKIP LOCKED, and active rows whose
// deadline has passed are reclaimed (that worker is presumed dead).
func (q *Queue) ClaimDue(ctx context.Context, jobType string, limit int, now time.Time) ([]models.ScheduledJob, error) {
	rows, err := q.db.QueryContext(ctx, `
		UPDATE scheduled_jobs SET state = 'active', attempts = attempts + 1,
		       claimed_until = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM scheduled_jobs
			WHERE job_type = $2 AND not_before <= $3
			  AND (state = 'scheduled' OR (state = 'active' AND claimed_until <= $3))
			ORDER BY not_before
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, job_type, payload, dedupe_key, not_before, state, attempts, last_error, created_at, updated_at`,
		now.Add(q.visibility).UTC(), jobType, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.ScheduledJob
	for rows.Next() {
		var j models.ScheduledJob
		if err := rows.Scan(&j.ID, &j.JobType, &j.Payload, &j.DedupeKey, &j.NotBefore, &j.State, &j.Attempts, &j.LastError, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Complete acknowledges a delivered job.
func (q *Queue) Complete(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scheduled_jobs SET state = $1, updated_at = now() WHERE id = $2`,
		models.JobCompleted, id)
	return err
}

// Retry returns a job to the scheduled state for another delivery attempt.
func (q *Queue) Retry(ctx context.Context, id int64, notBefore time.Time, lastErr string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scheduled_jobs SET state = $1, not_before = $2, last_error = $3, updated_at = now()
		WHERE id = $4`,
		models.JobScheduled, notBefore.UTC(), lastErr, id)
	return err
}

// Fail marks a job as permanently failed after exhausting its attempts.
func (q *Queue) Fail(ctx context.Context, id int64, lastErr string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scheduled_jobs SET state = $1, last_error = $2, updated_at = now()
		WHERE id = $3`,
		models.JobFailed, lastErr, id)
	return err
}
