package models

import "time"

// Invoice is one billing obligation for (group, member, period). The amount is
// copied from the group at creation time and never recomputed afterwards.
type Invoice struct {
	ID          int64      `json:"id"`
	GroupID     int64      `json:"group_id"`
	MemberID    int64      `json:"member_id"`
	Period      string     `json:"period"`
	AmountCents int64      `json:"amount_cents"`
	DueAt       time.Time  `json:"due_at"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// InvoiceWithRefs carries an invoice together with its group and member rows,
// as loaded by the due-check handler.
type InvoiceWithRefs struct {
	Invoice Invoice
	Group   Group
	Member  Member
}
