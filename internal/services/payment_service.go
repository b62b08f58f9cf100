package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vznosBot/internal/fsm"
	"vznosBot/internal/models"
)

// ProviderMock identifies the built-in test payment provider.
const ProviderMock = "mock"

// ErrNotPayable is returned when a payment is started for an invoice already
// in a terminal state.
var ErrNotPayable = errors.New("invoice is not payable")

// PaymentsRepository is the payment store access the payment service needs.
type PaymentsRepository interface {
	Create(ctx context.Context, p models.Payment) (models.Payment, error)
	GetByExternalID(ctx context.Context, externalID string) (models.Payment, error)
	LatestPendingByInvoice(ctx context.Context, invoiceID int64) (models.Payment, error)
	MarkSucceeded(ctx context.Context, id int64) (bool, error)
}

// PaymentInvoices is the invoice store access the payment service needs.
type PaymentInvoices interface {
	GetByID(ctx context.Context, id int64) (models.Invoice, error)
	UpdateStatus(ctx context.Context, id int64, from, to string) error
	MarkPaid(ctx context.Context, id int64, paidAt time.Time) error
}

// PaymentService implements the mock provider contract: pending payment
// creation and settlement by external correlation id.
type PaymentService struct {
	Payments PaymentsRepository
	Invoices PaymentInvoices
	Now      func() time.Time
}

func (s *PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// StartPayment creates a pending payment attempt for an invoice and flips the
// invoice to pending. Re-invocation before settlement reuses the latest
// pending attempt instead of corrupting state.
func (s *PaymentService) StartPayment(ctx context.Context, invoiceID int64) (models.Payment, error) {
	inv, err := s.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return models.Payment{}, err
	}
	if inv.Status != fsm.StatusUnpaid && inv.Status != fsm.StatusPending {
		return models.Payment{}, ErrNotPayable
	}

	payment, err := s.Payments.LatestPendingByInvoice(ctx, invoiceID)
	if errors.Is(err, models.ErrNoRecord) {
		payment, err = s.Payments.Create(ctx, models.Payment{
			InvoiceID:   invoiceID,
			Provider:    ProviderMock,
			ExternalID:  fmt.Sprintf("mock_%d_%s", invoiceID, uuid.NewString()),
			AmountCents: inv.AmountCents,
			Status:      models.PaymentPending,
		})
	}
	if err != nil {
		return models.Payment{}, err
	}

	if inv.Status == fsm.StatusUnpaid {
		if err := s.Invoices.UpdateStatus(ctx, invoiceID, fsm.StatusUnpaid, fsm.StatusPending); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return models.Payment{}, err
		}
	}
	return payment, nil
}

// SettlePayment transitions the referenced payment to succeeded and the owning
// invoice to paid, stamping the paid instant. Settling an already-settled
// payment is a no-op, so webhook redelivery is safe.
func (s *PaymentService) SettlePayment(ctx context.Context, externalID string) (models.Payment, error) {
	payment, err := s.Payments.GetByExternalID(ctx, externalID)
	if err != nil {
		return models.Payment{}, err
	}

	updated, err := s.Payments.MarkSucceeded(ctx, payment.ID)
	if err != nil {
		return models.Payment{}, err
	}
	if !updated {
		// already settled earlier
		payment.Status = models.PaymentSucceeded
		return payment, nil
	}

	if err := s.markInvoicePaid(ctx, payment.InvoiceID); err != nil {
		return models.Payment{}, err
	}
	payment.Status = models.PaymentSucceeded
	return payment, nil
}

func (s *PaymentService) markInvoicePaid(ctx context.Context, invoiceID int64) error {
	err := s.Invoices.MarkPaid(ctx, invoiceID, s.now())
	if err == nil || !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	// The invoice never made it to pending (the start-payment transition was
	// lost to a race). Promote it and retry once; if it is terminal by now the
	// guarded update loses again and the settlement defers to that state.
	inv, getErr := s.Invoices.GetByID(ctx, invoiceID)
	if getErr != nil {
		return getErr
	}
	if inv.Status != fsm.StatusUnpaid {
		return nil
	}
	if err := s.Invoices.UpdateStatus(ctx, invoiceID, fsm.StatusUnpaid, fsm.StatusPending); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err := s.Invoices.MarkPaid(ctx, invoiceID, s.now()); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return nil
}
