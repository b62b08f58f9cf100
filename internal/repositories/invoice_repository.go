package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vznosBot/internal/fsm"
	"vznosBot/internal/models"
)

// InvoiceRepository provides access to invoices data.
type InvoiceRepository struct {
	DB *sql.DB
}

const invoiceColumns = `id, group_id, member_id, period, amount_cents, due_at, status, paid_at, created_at, updated_at`

// UpsertForPeriod inserts the invoice for (group, member, period) or returns
// the existing row unchanged. The conflict arm only touches updated_at, so
// amount and due instant are first-write-wins for the period; concurrent calls
// converge on the unique constraint instead of racing to create duplicates.
func (r *InvoiceRepository) UpsertForPeriod(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO invoices (group_id, member_id, period, amount_cents, due_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (group_id, member_id, period) DO UPDATE SET updated_at = now()
		RETURNING `+invoiceColumns,
		inv.GroupID, inv.MemberID, inv.Period, inv.AmountCents, inv.DueAt, inv.Status)
	return scanInvoice(row)
}

// GetByID fetches an invoice by primary key.
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (models.Invoice, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	return inv, err
}

// GetForPeriod fetches the invoice for (group, member, period).
func (r *InvoiceRepository) GetForPeriod(ctx context.Context, groupID, memberID int64, period string) (models.Invoice, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE group_id = $1 AND member_id = $2 AND period = $3`, groupID, memberID, period)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	return inv, err
}

// GetWithRefs loads an invoice together with its group and member rows.
func (r *InvoiceRepository) GetWithRefs(ctx context.Context, id int64) (models.InvoiceWithRefs, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT i.id, i.group_id, i.member_id, i.period, i.amount_cents, i.due_at, i.status, i.paid_at, i.created_at, i.updated_at,
		       g.id, g.tg_chat_id, g.title, g.timezone, g.due_day, g.due_hour, g.amount_cents, g.created_at, g.updated_at,
		       m.id, m.tg_user_id, m.username, m.first_name, m.last_name, m.created_at, m.updated_at
		FROM invoices i
		JOIN groups g ON g.id = i.group_id
		JOIN members m ON m.id = i.member_id
		WHERE i.id = $1`, id)

	var ref models.InvoiceWithRefs
	var paidAt sql.NullTime
	err := row.Scan(
		&ref.Invoice.ID, &ref.Invoice.GroupID, &ref.Invoice.MemberID, &ref.Invoice.Period,
		&ref.Invoice.AmountCents, &ref.Invoice.DueAt, &ref.Invoice.Status, &paidAt,
		&ref.Invoice.CreatedAt, &ref.Invoice.UpdatedAt,
		&ref.Group.ID, &ref.Group.TgChatID, &ref.Group.Title, &ref.Group.Timezone,
		&ref.Group.DueDay, &ref.Group.DueHour, &ref.Group.AmountCents, &ref.Group.CreatedAt, &ref.Group.UpdatedAt,
		&ref.Member.ID, &ref.Member.TgUserID, &ref.Member.Username, &ref.Member.FirstName,
		&ref.Member.LastName, &ref.Member.CreatedAt, &ref.Member.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.InvoiceWithRefs{}, models.ErrInvoiceNotFound
	}
	if err != nil {
		return models.InvoiceWithRefs{}, err
	}
	if paidAt.Valid {
		ref.Invoice.PaidAt = &paidAt.Time
	}
	return ref, nil
}

// UpdateStatus applies a guarded status transition.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int64, from, to string) error {
	return fsm.Apply(ctx, r.DB, id, from, to)
}

// MarkPaid stamps the paid instant while flipping pending to paid. The guard
// on the current status makes redelivered settlements lose with sql.ErrNoRows.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE invoices SET status = $1, paid_at = $2, updated_at = now()
		WHERE id = $3 AND status = $4`,
		fsm.StatusPaid, paidAt, id, fsm.StatusPending)
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

func scanInvoice(row *sql.Row) (models.Invoice, error) {
	var inv models.Invoice
	var paidAt sql.NullTime
	err := row.Scan(&inv.ID, &inv.GroupID, &inv.MemberID, &inv.Period, &inv.AmountCents, &inv.DueAt, &inv.Status, &paidAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return models.Invoice{}, err
	}
	if paidAt.Valid {
		inv.PaidAt = &paidAt.Time
	}
	return inv, nil
}
