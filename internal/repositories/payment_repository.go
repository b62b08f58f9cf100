package repositories

import (
	"context"
	"database/sql"
	"errors"

	"vznosBot/internal/models"
)

// PaymentRepository provides access to payments data.
type PaymentRepository struct {
	DB *sql.DB
}

const paymentColumns = `id, invoice_id, provider, external_id, amount_cents, status, created_at, updated_at`

// Create inserts a payment attempt.
func (r *PaymentRepository) Create(ctx context.Context, p models.Payment) (models.Payment, error) {
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO payments (invoice_id, provider, external_id, amount_cents, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+paymentColumns,
		p.InvoiceID, p.Provider, p.ExternalID, p.AmountCents, p.Status)
	return scanPayment(row)
}

// GetByExternalID fetches a payment by its provider correlation id.
func (r *PaymentRepository) GetByExternalID(ctx context.Context, externalID string) (models.Payment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE external_id = $1`, externalID)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, models.ErrPaymentNotFound
	}
	return p, err
}

// LatestPendingByInvoice returns the most recent pending attempt for an
// invoice, or models.ErrNoRecord when there is none.
func (r *PaymentRepository) LatestPendingByInvoice(ctx context.Context, invoiceID int64) (models.Payment, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE invoice_id = $1 AND status = $2
		ORDER BY created_at DESC LIMIT 1`, invoiceID, models.PaymentPending)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, models.ErrNoRecord
	}
	return p, err
}

// MarkSucceeded flips a pending payment to succeeded. It reports false when
// the payment was not pending anymore, which callers treat as already settled.
func (r *PaymentRepository) MarkSucceeded(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		models.PaymentSucceeded, id, models.PaymentPending)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func scanPayment(row *sql.Row) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.InvoiceID, &p.Provider, &p.ExternalID, &p.AmountCents, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
