package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"vznosBot/internal/fsm"
	"vznosBot/internal/models"
)

// Logger is a minimal logger interface required by the due-check handler.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Enforcer performs the membership removal side effect. Implementations use
// temporary-ban semantics: the member is ejected but may rejoin later.
type Enforcer interface {
	RemoveFromChat(ctx context.Context, chatID, userID int64) error
}

// InvoiceLoader is the invoice store access the due-check handler needs.
type InvoiceLoader interface {
	GetWithRefs(ctx context.Context, invoiceID int64) (models.InvoiceWithRefs, error)
	UpdateStatus(ctx context.Context, id int64, from, to string) error
}

// AuditWriter appends enforcement outcomes.
type AuditWriter interface {
	Append(ctx context.Context, action string, data interface{}) error
}

// DueCheckService consumes due-check jobs. The handler is idempotent: the
// persisted invoice status is the only decision input, so redelivery after a
// crash, a visibility timeout, or a settlement race is harmless.
type DueCheckService struct {
	Invoices InvoiceLoader
	Audit    AuditWriter
	Enforcer Enforcer
	Logger   Logger
}

type auditEntry struct {
	InvoiceID int64  `json:"invoice_id"`
	TgChatID  int64  `json:"tg_chat_id"`
	TgUserID  int64  `json:"tg_user_id"`
	Error     string `json:"error,omitempty"`
}

// HandleDueCheck processes one delivered due-check job. It returns an error
// only for transient store failures; every terminal outcome, including a
// failed enforcement call, acknowledges the job so the queue never retries
// against a permanently broken external call.
func (s *DueCheckService) HandleDueCheck(ctx context.Context, payload []byte) error {
	var p DueCheckPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.InvoiceID == 0 {
		// payload shape is a programming invariant, not a transient condition
		s.Logger.Errorf("due check: dropping malformed payload %q", payload)
		return nil
	}

	ref, err := s.Invoices.GetWithRefs(ctx, p.InvoiceID)
	if err != nil {
		if errors.Is(err, models.ErrInvoiceNotFound) {
			// removed out-of-band, nothing to enforce
			return nil
		}
		return err
	}

	if fsm.IsTerminal(ref.Invoice.Status) {
		return nil
	}

	if s.Enforcer == nil {
		s.Logger.Errorf("due check: no enforcer configured, invoice %d left as is", ref.Invoice.ID)
		return nil
	}

	entry := auditEntry{
		InvoiceID: ref.Invoice.ID,
		TgChatID:  ref.Group.TgChatID,
		TgUserID:  ref.Member.TgUserID,
	}

	if err := s.Enforcer.RemoveFromChat(ctx, ref.Group.TgChatID, ref.Member.TgUserID); err != nil {
		// The invoice stays non-terminal for manual reconciliation; retrying
		// here would hammer a call that keeps failing the same way.
		entry.Error = err.Error()
		if auditErr := s.Audit.Append(ctx, models.AuditKickFailed, entry); auditErr != nil {
			s.Logger.Errorf("due check: audit write for failed kick: %v", auditErr)
		}
		s.Logger.Errorf("due check: enforcement for invoice %d failed: %v", ref.Invoice.ID, err)
		return nil
	}

	if err := s.Invoices.UpdateStatus(ctx, ref.Invoice.ID, ref.Invoice.Status, fsm.StatusKicked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// lost the race to a concurrent settlement; its terminal status wins
			return nil
		}
		return err
	}

	if err := s.Audit.Append(ctx, models.AuditKickedByDue, entry); err != nil {
		// status is already terminal, so a retry would skip the audit anyway
		s.Logger.Errorf("due check: audit write for kick: %v", err)
	}
	s.Logger.Infof("due check: invoice %d enforced, member %d removed from chat %d", ref.Invoice.ID, ref.Member.TgUserID, ref.Group.TgChatID)
	return nil
}
