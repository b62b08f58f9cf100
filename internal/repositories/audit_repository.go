package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
)

// AuditRepository appends enforcement outcomes. The log is write-only from the
// application's perspective.
type AuditRepository struct {
	DB *sql.DB
}

// Append records an action with a structured payload.
func (r *AuditRepository) Append(ctx context.Context, action string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO audit_logs (action, data) VALUES ($1, $2)`, action, body)
	return err
}
