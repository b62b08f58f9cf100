package models

import "time"

// Group is a billing scope bound to one Telegram chat.
type Group struct {
	ID          int64     `json:"id"`
	TgChatID    int64     `json:"tg_chat_id"`
	Title       string    `json:"title"`
	Timezone    string    `json:"timezone"`
	DueDay      int       `json:"due_day"`
	DueHour     int       `json:"due_hour"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Member is a billable participant identified by a Telegram user id.
// Display fields are refreshed on every observed interaction.
type Member struct {
	ID        int64     `json:"id"`
	TgUserID  int64     `json:"tg_user_id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GroupMember links a member to a group. Rows are reactivated, never deleted.
type GroupMember struct {
	GroupID  int64 `json:"group_id"`
	MemberID int64 `json:"member_id"`
	Active   bool  `json:"active"`
}
