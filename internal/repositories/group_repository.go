package repositories

import (
	"context"
	"database/sql"
	"errors"

	"vznosBot/internal/models"
)

// GroupRepository provides access to groups data.
type GroupRepository struct {
	DB *sql.DB
}

// Upsert creates or updates a group keyed by its Telegram chat id.
func (r *GroupRepository) Upsert(ctx context.Context, g models.Group) (models.Group, error) {
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO groups (tg_chat_id, title, timezone, due_day, due_hour, amount_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tg_chat_id) DO UPDATE
		SET title = EXCLUDED.title, timezone = EXCLUDED.timezone, due_day = EXCLUDED.due_day,
		    due_hour = EXCLUDED.due_hour, amount_cents = EXCLUDED.amount_cents, updated_at = now()
		RETURNING id, tg_chat_id, title, timezone, due_day, due_hour, amount_cents, created_at, updated_at`,
		g.TgChatID, g.Title, g.Timezone, g.DueDay, g.DueHour, g.AmountCents)
	return scanGroup(row)
}

// GetByID fetches a group by primary key.
func (r *GroupRepository) GetByID(ctx context.Context, id int64) (models.Group, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, tg_chat_id, title, timezone, due_day, due_hour, amount_cents, created_at, updated_at
		FROM groups WHERE id = $1`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, models.ErrGroupNotFound
	}
	return g, err
}

// GetByChatID fetches a group by its Telegram chat id.
func (r *GroupRepository) GetByChatID(ctx context.Context, chatID int64) (models.Group, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, tg_chat_id, title, timezone, due_day, due_hour, amount_cents, created_at, updated_at
		FROM groups WHERE tg_chat_id = $1`, chatID)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, models.ErrGroupNotFound
	}
	return g, err
}

func scanGroup(row *sql.Row) (models.Group, error) {
	var g models.Group
	err := row.Scan(&g.ID, &g.TgChatID, &g.Title, &g.Timezone, &g.DueDay, &g.DueHour, &g.AmountCents, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}
