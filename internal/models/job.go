package models

import (
	"encoding/json"
	"time"
)

// Scheduled job states.
const (
	JobScheduled = "scheduled"
	JobActive    = "active"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// ScheduledJob is a durable queue entry. For a given dedupe key at most one
// scheduled/active row exists at a time; delivery is at-least-once.
type ScheduledJob struct {
	ID        int64           `json:"id"`
	JobType   string          `json:"job_type"`
	Payload   json.RawMessage `json:"payload"`
	DedupeKey string          `json:"dedupe_key"`
	NotBefore time.Time       `json:"not_before"`
	State     string          `json:"state"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
