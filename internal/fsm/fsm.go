package fsm

import (
	"context"
	"database/sql"
	"errors"
)

// Status constants used by the invoice state machine.
const (
	StatusUnpaid  = "unpaid"
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusExcused = "excused"
	StatusKicked  = "kicked"
)

// ErrInvalidTransition is returned when a requested status change is not
// allowed by the state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[string]map[string]struct{}{
	StatusUnpaid: {
		StatusPending: {},
		StatusExcused: {},
		StatusKicked:  {},
	},
	StatusPending: {
		StatusPaid:   {},
		StatusKicked: {},
	},
	StatusPaid:    {},
	StatusExcused: {},
	StatusKicked:  {},
}

// IsTerminal reports whether no further automated transition leaves status.
func IsTerminal(status string) bool {
	switch status {
	case StatusPaid, StatusExcused, StatusKicked:
		return true
	}
	return false
}

// CanTransition returns whether an invoice can transition from the current
// status to the target status.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// Execer is the subset of *sql.DB / *sql.Tx needed by Apply.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Apply updates an invoice status using optimistic validation. The UPDATE is
// guarded by the current status, so a concurrent transition loses cleanly with
// sql.ErrNoRows instead of overwriting a terminal state.
func Apply(ctx context.Context, db Execer, invoiceID int64, fromStatus, toStatus string) error {
	if !CanTransition(fromStatus, toStatus) {
		return ErrInvalidTransition
	}
	res, err := db.ExecContext(ctx, `UPDATE invoices SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`, toStatus, invoiceID, fromStatus)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
