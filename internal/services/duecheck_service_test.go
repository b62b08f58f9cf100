package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"vznosBot/internal/fsm"
	"vznosBot/internal/models"
)

type noopLogger struct{}

func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

type stubInvoiceLoader struct {
	refs     map[int64]models.InvoiceWithRefs
	statuses map[int64]string
}

func newStubLoader(status string) *stubInvoiceLoader {
	inv := models.Invoice{ID: 11, GroupID: 1, MemberID: 7, Period: "2025-03", AmountCents: 50000, Status: status, DueAt: time.Date(2025, 3, 5, 17, 0, 0, 0, time.UTC)}
	return &stubInvoiceLoader{
		refs: map[int64]models.InvoiceWithRefs{11: {
			Invoice: inv,
			Group:   models.Group{ID: 1, TgChatID: -100200, Title: "Climbing club"},
			Member:  models.Member{ID: 7, TgUserID: 42},
		}},
		statuses: map[int64]string{11: status},
	}
}

func (s *stubInvoiceLoader) GetWithRefs(ctx context.Context, id int64) (models.InvoiceWithRefs, error) {
	ref, ok := s.refs[id]
	if !ok {
		return models.InvoiceWithRefs{}, models.ErrInvoiceNotFound
	}
	ref.Invoice.Status = s.statuses[id]
	return ref, nil
}

func (s *stubInvoiceLoader) UpdateStatus(ctx context.Context, id int64, from, to string) error {
	return applyStubStatus(s.statuses, id, from, to)
}

type stubAudit struct {
	entries []struct {
		action string
		data   interface{}
	}
	err error
}

func (s *stubAudit) Append(ctx context.Context, action string, data interface{}) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, struct {
		action string
		data   interface{}
	}{action, data})
	return nil
}

type stubEnforcer struct {
	calls int
	err   error
}

func (s *stubEnforcer) RemoveFromChat(ctx context.Context, chatID, userID int64) error {
	s.calls++
	return s.err
}

func dueCheckPayload(t *testing.T, invoiceID int64) []byte {
	t.Helper()
	body, err := json.Marshal(DueCheckPayload{InvoiceID: invoiceID})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return body
}

func newDueCheckService(loader *stubInvoiceLoader, audit *stubAudit, enforcer *stubEnforcer) *DueCheckService {
	return &DueCheckService{Invoices: loader, Audit: audit, Enforcer: enforcer, Logger: noopLogger{}}
}

func TestDueCheckEnforcesUnpaidInvoice(t *testing.T) {
	loader := newStubLoader(fsm.StatusUnpaid)
	audit := &stubAudit{}
	enforcer := &stubEnforcer{}
	svc := newDueCheckService(loader, audit, enforcer)

	if err := svc.HandleDueCheck(context.Background(), dueCheckPayload(t, 11)); err != nil {
		t.Fatalf("HandleDueCheck: %v", err)
	}
	if enforcer.calls != 1 {
		t.Fatalf("expected one enforcement call, got %d", enforcer.calls)
	}
	if loader.statuses[11] != fsm.StatusKicked {
		t.Fatalf("expected kicked, got %s", loader.statuses[11])
	}
	if len(audit.entries) != 1 || audit.entries[0].action != models.AuditKickedByDue {
		t.Fatalf("expected one KICKED_BY_DUE record, got %+v", audit.entries)
	}
}

func TestDueCheckNoOpOnTerminalStatuses(t *testing.T) {
	for _, status := range []string{fsm.StatusPaid, fsm.StatusExcused, fsm.StatusKicked} {
		loader := newStubLoader(status)
		audit := &stubAudit{}
		enforcer := &stubEnforcer{}
		svc := newDueCheckService(loader, audit, enforcer)

		// deliver twice to model at-least-once redelivery
		for i := 0; i < 2; i++ {
			if err := svc.HandleDueCheck(context.Background(), dueCheckPayload(t, 11)); err != nil {
				t.Fatalf("status %s delivery %d: %v", status, i, err)
			}
		}
		if enforcer.calls != 0 {
			t.Fatalf("status %s: expected no enforcement, got %d calls", status, enforcer.calls)
		}
		if loader.statuses[11] != status {
			t.Fatalf("status %s must not change, got %s", status, loader.statuses[11])
		}
		if len(audit.entries) != 0 {
			t.Fatalf("status %s: unexpected audit entries %+v", status, audit.entries)
		}
	}
}

func TestDueCheckEnforcementFailureIsNotRetried(t *testing.T) {
	loader := newStubLoader(fsm.StatusUnpaid)
	audit := &stubAudit{}
	enforcer := &stubEnforcer{err: errors.New("bot lacks admin rights")}
	svc := newDueCheckService(loader, audit, enforcer)

	if err := svc.HandleDueCheck(context.Background(), dueCheckPayload(t, 11)); err != nil {
		t.Fatalf("enforcement failure must acknowledge the job, got %v", err)
	}
	if loader.statuses[11] != fsm.StatusUnpaid {
		t.Fatalf("invoice status must stay unpaid, got %s", loader.statuses[11])
	}
	if len(audit.entries) != 1 || audit.entries[0].action != models.AuditKickFailed {
		t.Fatalf("expected exactly one KICK_FAILED record, got %+v", audit.entries)
	}
	entry, ok := audit.entries[0].data.(auditEntry)
	if !ok || entry.Error == "" {
		t.Fatalf("expected failure context in audit data, got %+v", audit.entries[0].data)
	}
}

func TestDueCheckMalformedPayloadIsDropped(t *testing.T) {
	loader := newStubLoader(fsm.StatusUnpaid)
	enforcer := &stubEnforcer{}
	svc := newDueCheckService(loader, &stubAudit{}, enforcer)

	for _, payload := range [][]byte{[]byte("not json"), []byte(`{}`), []byte(`{"invoice_id":"abc"}`)} {
		if err := svc.HandleDueCheck(context.Background(), payload); err != nil {
			t.Fatalf("malformed payload %q must be acknowledged, got %v", payload, err)
		}
	}
	if enforcer.calls != 0 {
		t.Fatalf("expected no enforcement for malformed payloads, got %d", enforcer.calls)
	}
}

func TestDueCheckMissingInvoiceIsAcknowledged(t *testing.T) {
	loader := newStubLoader(fsm.StatusUnpaid)
	enforcer := &stubEnforcer{}
	svc := newDueCheckService(loader, &stubAudit{}, enforcer)

	if err := svc.HandleDueCheck(context.Background(), dueCheckPayload(t, 404)); err != nil {
		t.Fatalf("missing invoice must be acknowledged, got %v", err)
	}
	if enforcer.calls != 0 {
		t.Fatalf("expected no enforcement for missing invoice, got %d", enforcer.calls)
	}
}

func TestDueCheckLosesSettlementRaceCleanly(t *testing.T) {
	loader := newStubLoader(fsm.StatusUnpaid)
	audit := &stubAudit{}
	enforcer := &stubEnforcer{}
	svc := newDueCheckService(loader, audit, enforcer)

	// simulate settlement landing between the load and the guarded update
	loader.statuses[11] = fsm.StatusPaid
	stale := &raceLoader{inner: loader, staleStatus: fsm.StatusUnpaid}
	svc.Invoices = stale

	if err := svc.HandleDueCheck(context.Background(), dueCheckPayload(t, 11)); err != nil {
		t.Fatalf("losing the settlement race must acknowledge, got %v", err)
	}
	if loader.statuses[11] != fsm.StatusPaid {
		t.Fatalf("settlement result must win, got %s", loader.statuses[11])
	}
	if len(audit.entries) != 0 {
		t.Fatalf("no audit entry when enforcement lost the race, got %+v", audit.entries)
	}
}

// raceLoader serves a stale status on load while the guarded update sees the
// settled row.
type raceLoader struct {
	inner       *stubInvoiceLoader
	staleStatus string
}

func (r *raceLoader) GetWithRefs(ctx context.Context, id int64) (models.InvoiceWithRefs, error) {
	ref, err := r.inner.GetWithRefs(ctx, id)
	if err != nil {
		return ref, err
	}
	ref.Invoice.Status = r.staleStatus
	return ref, nil
}

func (r *raceLoader) UpdateStatus(ctx context.Context, id int64, from, to string) error {
	return r.inner.UpdateStatus(ctx, id, from, to)
}
