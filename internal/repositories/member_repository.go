package repositories

import (
	"context"
	"database/sql"
	"errors"

	"vznosBot/internal/models"
)

// MemberRepository provides access to members and group membership data.
type MemberRepository struct {
	DB *sql.DB
}

// Upsert creates or updates a member keyed by Telegram user id, refreshing the
// denormalized display fields.
func (r *MemberRepository) Upsert(ctx context.Context, m models.Member) (models.Member, error) {
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO members (tg_user_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tg_user_id) DO UPDATE
		SET username = EXCLUDED.username, first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name, updated_at = now()
		RETURNING id, tg_user_id, username, first_name, last_name, created_at, updated_at`,
		m.TgUserID, m.Username, m.FirstName, m.LastName)
	return scanMember(row)
}

// GetByUserID fetches a member by Telegram user id.
func (r *MemberRepository) GetByUserID(ctx context.Context, userID int64) (models.Member, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, tg_user_id, username, first_name, last_name, created_at, updated_at
		FROM members WHERE tg_user_id = $1`, userID)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Member{}, models.ErrMemberNotFound
	}
	return m, err
}

// GetByID fetches a member by primary key.
func (r *MemberRepository) GetByID(ctx context.Context, id int64) (models.Member, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, tg_user_id, username, first_name, last_name, created_at, updated_at
		FROM members WHERE id = $1`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Member{}, models.ErrMemberNotFound
	}
	return m, err
}

// EnsureGroupMember records a membership, reactivating it when it already
// exists. Rows are never deleted.
func (r *MemberRepository) EnsureGroupMember(ctx context.Context, groupID, memberID int64) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO group_members (group_id, member_id, active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (group_id, member_id) DO UPDATE SET active = TRUE`,
		groupID, memberID)
	return err
}

func scanMember(row *sql.Row) (models.Member, error) {
	var m models.Member
	err := row.Scan(&m.ID, &m.TgUserID, &m.Username, &m.FirstName, &m.LastName, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}
