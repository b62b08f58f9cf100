package models

import (
	"encoding/json"
	"time"
)

// Audit actions recorded by the due-check handler.
const (
	AuditKickedByDue = "KICKED_BY_DUE"
	AuditKickFailed  = "KICK_FAILED"
)

// AuditLog is an append-only record of enforcement outcomes.
type AuditLog struct {
	ID        int64           `json:"id"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}
