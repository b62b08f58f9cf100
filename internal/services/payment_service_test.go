package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"vznosBot/internal/fsm"
	"vznosBot/internal/models"
)

type stubPayments struct {
	nextID   int64
	payments map[int64]models.Payment
}

func newStubPayments() *stubPayments {
	return &stubPayments{payments: make(map[int64]models.Payment)}
}

func (s *stubPayments) Create(ctx context.Context, p models.Payment) (models.Payment, error) {
	s.nextID++
	p.ID = s.nextID
	s.payments[p.ID] = p
	return p, nil
}

func (s *stubPayments) GetByExternalID(ctx context.Context, externalID string) (models.Payment, error) {
	for _, p := range s.payments {
		if p.ExternalID == externalID {
			return p, nil
		}
	}
	return models.Payment{}, models.ErrPaymentNotFound
}

func (s *stubPayments) LatestPendingByInvoice(ctx context.Context, invoiceID int64) (models.Payment, error) {
	var latest models.Payment
	for _, p := range s.payments {
		if p.InvoiceID == invoiceID && p.Status == models.PaymentPending && p.ID > latest.ID {
			latest = p
		}
	}
	if latest.ID == 0 {
		return models.Payment{}, models.ErrNoRecord
	}
	return latest, nil
}

func (s *stubPayments) MarkSucceeded(ctx context.Context, id int64) (bool, error) {
	p, ok := s.payments[id]
	if !ok || p.Status != models.PaymentPending {
		return false, nil
	}
	p.Status = models.PaymentSucceeded
	s.payments[id] = p
	return true, nil
}

type stubPaymentInvoices struct {
	invoices map[int64]models.Invoice
	statuses map[int64]string
	paidAt   map[int64]time.Time
}

func newStubPaymentInvoices(status string) *stubPaymentInvoices {
	return &stubPaymentInvoices{
		invoices: map[int64]models.Invoice{11: {ID: 11, GroupID: 1, MemberID: 7, Period: "2025-03", AmountCents: 50000, Status: status}},
		statuses: map[int64]string{11: status},
		paidAt:   make(map[int64]time.Time),
	}
}

func (s *stubPaymentInvoices) GetByID(ctx context.Context, id int64) (models.Invoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	inv.Status = s.statuses[id]
	return inv, nil
}

func (s *stubPaymentInvoices) UpdateStatus(ctx context.Context, id int64, from, to string) error {
	return applyStubStatus(s.statuses, id, from, to)
}

func (s *stubPaymentInvoices) MarkPaid(ctx context.Context, id int64, paidAt time.Time) error {
	if err := applyStubStatus(s.statuses, id, fsm.StatusPending, fsm.StatusPaid); err != nil {
		return err
	}
	s.paidAt[id] = paidAt
	return nil
}

func TestStartPaymentFlipsInvoiceToPending(t *testing.T) {
	payments := newStubPayments()
	invoices := newStubPaymentInvoices(fsm.StatusUnpaid)
	svc := &PaymentService{Payments: payments, Invoices: invoices}

	p, err := svc.StartPayment(context.Background(), 11)
	if err != nil {
		t.Fatalf("StartPayment: %v", err)
	}
	if p.Status != models.PaymentPending || p.Provider != ProviderMock {
		t.Fatalf("unexpected payment %+v", p)
	}
	if !strings.HasPrefix(p.ExternalID, "mock_11_") {
		t.Fatalf("unexpected external id %s", p.ExternalID)
	}
	if p.AmountCents != 50000 {
		t.Fatalf("expected amount copied from invoice, got %d", p.AmountCents)
	}
	if invoices.statuses[11] != fsm.StatusPending {
		t.Fatalf("expected invoice pending, got %s", invoices.statuses[11])
	}
}

func TestStartPaymentReusesPendingAttempt(t *testing.T) {
	payments := newStubPayments()
	invoices := newStubPaymentInvoices(fsm.StatusUnpaid)
	svc := &PaymentService{Payments: payments, Invoices: invoices}

	first, err := svc.StartPayment(context.Background(), 11)
	if err != nil {
		t.Fatalf("first StartPayment: %v", err)
	}
	second, err := svc.StartPayment(context.Background(), 11)
	if err != nil {
		t.Fatalf("second StartPayment: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected pending attempt to be reused, got %d and %d", first.ID, second.ID)
	}
	if len(payments.payments) != 1 {
		t.Fatalf("expected one payment row, got %d", len(payments.payments))
	}
}

func TestStartPaymentRejectsTerminalInvoice(t *testing.T) {
	for _, status := range []string{fsm.StatusPaid, fsm.StatusExcused, fsm.StatusKicked} {
		svc := &PaymentService{Payments: newStubPayments(), Invoices: newStubPaymentInvoices(status)}
		if _, err := svc.StartPayment(context.Background(), 11); !errors.Is(err, ErrNotPayable) {
			t.Fatalf("status %s: expected ErrNotPayable, got %v", status, err)
		}
	}
}

func TestSettlePayment(t *testing.T) {
	payments := newStubPayments()
	invoices := newStubPaymentInvoices(fsm.StatusUnpaid)
	settledAt := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	svc := &PaymentService{Payments: payments, Invoices: invoices, Now: func() time.Time { return settledAt }}

	p, err := svc.StartPayment(context.Background(), 11)
	if err != nil {
		t.Fatalf("StartPayment: %v", err)
	}

	settled, err := svc.SettlePayment(context.Background(), p.ExternalID)
	if err != nil {
		t.Fatalf("SettlePayment: %v", err)
	}
	if settled.Status != models.PaymentSucceeded {
		t.Fatalf("expected succeeded payment, got %s", settled.Status)
	}
	if invoices.statuses[11] != fsm.StatusPaid {
		t.Fatalf("expected paid invoice, got %s", invoices.statuses[11])
	}
	if !invoices.paidAt[11].Equal(settledAt) {
		t.Fatalf("expected paid timestamp %v, got %v", settledAt, invoices.paidAt[11])
	}
}

func TestSettlePaymentIsIdempotent(t *testing.T) {
	payments := newStubPayments()
	invoices := newStubPaymentInvoices(fsm.StatusUnpaid)
	svc := &PaymentService{Payments: payments, Invoices: invoices}

	p, err := svc.StartPayment(context.Background(), 11)
	if err != nil {
		t.Fatalf("StartPayment: %v", err)
	}
	if _, err := svc.SettlePayment(context.Background(), p.ExternalID); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	firstPaidAt := invoices.paidAt[11]

	again, err := svc.SettlePayment(context.Background(), p.ExternalID)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if again.Status != models.PaymentSucceeded {
		t.Fatalf("expected succeeded on redelivery, got %s", again.Status)
	}
	if !invoices.paidAt[11].Equal(firstPaidAt) {
		t.Fatalf("paid timestamp must not move on redelivery")
	}
}

func TestSettleUnknownPayment(t *testing.T) {
	svc := &PaymentService{Payments: newStubPayments(), Invoices: newStubPaymentInvoices(fsm.StatusUnpaid)}
	if _, err := svc.SettlePayment(context.Background(), "mock_none"); !errors.Is(err, models.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}
