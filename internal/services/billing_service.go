package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vznosBot/internal/fsm"
	"vznosBot/internal/models"
	"vznosBot/internal/period"
)

// JobDueCheck is the queue job type delivered at an invoice's due instant.
const JobDueCheck = "invoice.due_check"

// DueCheckPayload is the payload carried by a due-check job.
type DueCheckPayload struct {
	InvoiceID int64 `json:"invoice_id"`
}

// DueCheckKey builds the deduplication key for an invoice's due-check job.
// Deterministic in (invoice, period), so repeated scheduling collapses to one
// pending job.
func DueCheckKey(invoiceID int64, periodKey string) string {
	return fmt.Sprintf("due:%d:%s", invoiceID, periodKey)
}

// GroupsRepository is the group store access the billing service needs.
type GroupsRepository interface {
	Upsert(ctx context.Context, g models.Group) (models.Group, error)
	GetByID(ctx context.Context, id int64) (models.Group, error)
	GetByChatID(ctx context.Context, chatID int64) (models.Group, error)
}

// MembersRepository is the member store access the billing service needs.
type MembersRepository interface {
	Upsert(ctx context.Context, m models.Member) (models.Member, error)
	GetByUserID(ctx context.Context, userID int64) (models.Member, error)
	EnsureGroupMember(ctx context.Context, groupID, memberID int64) error
}

// InvoicesRepository is the invoice store access the billing service needs.
type InvoicesRepository interface {
	UpsertForPeriod(ctx context.Context, inv models.Invoice) (models.Invoice, error)
	GetForPeriod(ctx context.Context, groupID, memberID int64, periodKey string) (models.Invoice, error)
	GetByID(ctx context.Context, id int64) (models.Invoice, error)
	UpdateStatus(ctx context.Context, id int64, from, to string) error
}

// Scheduler is the queue access the billing service needs.
type Scheduler interface {
	Schedule(ctx context.Context, jobType string, payload interface{}, notBefore time.Time, dedupeKey string) error
}

// InvoiceStatus is the read-only view returned for display.
type InvoiceStatus struct {
	Group   models.Group    `json:"group"`
	Member  models.Member   `json:"member"`
	Period  string          `json:"period"`
	Invoice *models.Invoice `json:"invoice,omitempty"`
}

// BillingService orchestrates the invoice lifecycle: one invoice per
// (group, member, period) with exactly one due-check job scheduled for it.
type BillingService struct {
	Groups   GroupsRepository
	Members  MembersRepository
	Invoices InvoicesRepository
	Queue    Scheduler
	Now      func() time.Time
}

func (s *BillingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SetupGroup validates and upserts a group configuration.
func (s *BillingService) SetupGroup(ctx context.Context, g models.Group) (models.Group, error) {
	if g.DueDay < 1 || g.DueDay > 31 {
		return models.Group{}, fmt.Errorf("due day %d out of range [1,31]", g.DueDay)
	}
	if g.DueHour < 0 || g.DueHour > 23 {
		return models.Group{}, fmt.Errorf("due hour %d out of range [0,23]", g.DueHour)
	}
	if g.AmountCents <= 0 {
		return models.Group{}, fmt.Errorf("amount must be positive, got %d", g.AmountCents)
	}
	if _, err := time.LoadLocation(g.Timezone); err != nil {
		return models.Group{}, fmt.Errorf("unknown timezone %q", g.Timezone)
	}
	return s.Groups.Upsert(ctx, g)
}

// GroupByChatID resolves a group by its Telegram chat id.
func (s *BillingService) GroupByChatID(ctx context.Context, chatID int64) (models.Group, error) {
	return s.Groups.GetByChatID(ctx, chatID)
}

// RegisterMember upserts a member on first contact and refreshes display
// fields on every later one.
func (s *BillingService) RegisterMember(ctx context.Context, m models.Member) (models.Member, error) {
	return s.Members.Upsert(ctx, m)
}

// EnsureGroupMember records or reactivates a membership.
func (s *BillingService) EnsureGroupMember(ctx context.Context, groupID, memberID int64) error {
	return s.Members.EnsureGroupMember(ctx, groupID, memberID)
}

// EnsureInvoiceAndSchedule makes sure the invoice for the group's current
// period exists and has exactly one due-check job scheduled. The invoice
// upsert is first-write-wins per period and the queue deduplicates on the key,
// so the whole operation is idempotent and safe to retry.
func (s *BillingService) EnsureInvoiceAndSchedule(ctx context.Context, groupID, memberID int64) (models.Invoice, time.Time, error) {
	group, err := s.Groups.GetByID(ctx, groupID)
	if err != nil {
		return models.Invoice{}, time.Time{}, err
	}

	loc := period.Load(group.Timezone)
	periodKey := period.Current(loc, s.now())
	dueAt, err := period.ComputeDueAt(loc, group.DueDay, group.DueHour, periodKey)
	if err != nil {
		return models.Invoice{}, time.Time{}, err
	}

	inv, err := s.Invoices.UpsertForPeriod(ctx, models.Invoice{
		GroupID:     groupID,
		MemberID:    memberID,
		Period:      periodKey,
		AmountCents: group.AmountCents,
		DueAt:       dueAt,
		Status:      fsm.StatusUnpaid,
	})
	if err != nil {
		return models.Invoice{}, time.Time{}, err
	}

	// Scheduled at the stored due instant, unconditionally: a due instant in
	// the past delivers on the next worker tick (catch-up semantics).
	key := DueCheckKey(inv.ID, inv.Period)
	if err := s.Queue.Schedule(ctx, JobDueCheck, DueCheckPayload{InvoiceID: inv.ID}, inv.DueAt, key); err != nil {
		return models.Invoice{}, time.Time{}, err
	}
	return inv, inv.DueAt, nil
}

// GetInvoiceStatus resolves the current period's invoice for display, with no
// scheduling side effect. A missing invoice is reported as a nil Invoice, not
// an error.
func (s *BillingService) GetInvoiceStatus(ctx context.Context, chatID, userID int64) (InvoiceStatus, error) {
	group, err := s.Groups.GetByChatID(ctx, chatID)
	if err != nil {
		return InvoiceStatus{}, err
	}
	member, err := s.Members.GetByUserID(ctx, userID)
	if err != nil {
		return InvoiceStatus{}, err
	}

	loc := period.Load(group.Timezone)
	periodKey := period.Current(loc, s.now())

	status := InvoiceStatus{Group: group, Member: member, Period: periodKey}
	inv, err := s.Invoices.GetForPeriod(ctx, group.ID, member.ID, periodKey)
	if err != nil {
		if errors.Is(err, models.ErrInvoiceNotFound) {
			return status, nil
		}
		return InvoiceStatus{}, err
	}
	status.Invoice = &inv
	return status, nil
}

// ExcuseInvoice administratively excuses an unpaid invoice, which is terminal.
func (s *BillingService) ExcuseInvoice(ctx context.Context, invoiceID int64) error {
	if _, err := s.Invoices.GetByID(ctx, invoiceID); err != nil {
		return err
	}
	err := s.Invoices.UpdateStatus(ctx, invoiceID, fsm.StatusUnpaid, fsm.StatusExcused)
	if errors.Is(err, sql.ErrNoRows) {
		return fsm.ErrInvalidTransition
	}
	return err
}
