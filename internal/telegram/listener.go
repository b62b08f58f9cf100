package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"vznosBot/internal/models"
)

// Logger is a minimal logger interface required by the listener.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Billing is the lifecycle surface the listener drives.
type Billing interface {
	SetupGroup(ctx context.Context, g models.Group) (models.Group, error)
	GroupByChatID(ctx context.Context, chatID int64) (models.Group, error)
	RegisterMember(ctx context.Context, m models.Member) (models.Member, error)
	EnsureGroupMember(ctx context.Context, groupID, memberID int64) error
	EnsureInvoiceAndSchedule(ctx context.Context, groupID, memberID int64) (models.Invoice, time.Time, error)
}

// ListenerConfig holds listener parameters and the defaults applied by /setup.
type ListenerConfig struct {
	AllowedChatID      int64
	PollTimeoutSec     int
	DefaultTimezone    string
	DefaultDueDay      int
	DefaultDueHour     int
	DefaultAmountCents int64
}

// Listener long-polls the Bot API and feeds join events into the billing
// lifecycle. Telegram can redeliver updates after a reconnect, so handled
// update ids are remembered in Redis.
type Listener struct {
	client  *Client
	billing Billing
	rdb     *redis.Client
	logger  Logger
	cfg     ListenerConfig
}

// NewListener constructs a Listener.
func NewListener(client *Client, billing Billing, rdb *redis.Client, logger Logger, cfg ListenerConfig) *Listener {
	if cfg.PollTimeoutSec <= 0 {
		cfg.PollTimeoutSec = 30
	}
	return &Listener{client: client, billing: billing, rdb: rdb, logger: logger, cfg: cfg}
}

// Run starts the long-poll loop and blocks until the context is canceled.
func (l *Listener) Run(ctx context.Context) {
	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := l.client.GetUpdates(ctx, offset, l.cfg.PollTimeoutSec)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			l.logger.Errorf("telegram: get updates: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if l.alreadyHandled(ctx, u.UpdateID) {
				continue
			}
			if err := l.handleUpdate(ctx, u); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				l.logger.Errorf("telegram: update %d: %v", u.UpdateID, err)
			}
		}
	}
}

// alreadyHandled marks-and-checks an update id in Redis. Without Redis the
// getUpdates offset alone still prevents duplicates within one process life.
func (l *Listener) alreadyHandled(ctx context.Context, updateID int64) bool {
	if l.rdb == nil {
		return false
	}
	key := fmt.Sprintf("tg:update:%d", updateID)
	set, err := l.rdb.SetNX(ctx, key, 1, 24*time.Hour).Result()
	if err != nil {
		l.logger.Errorf("telegram: update dedupe: %v", err)
		return false
	}
	return !set
}

func (l *Listener) handleUpdate(ctx context.Context, u Update) error {
	if u.ChatMember != nil {
		return l.handleChatMember(ctx, u.ChatMember)
	}
	if u.Message != nil {
		return l.handleMessage(ctx, u.Message)
	}
	return nil
}

func isGroupChat(chatType string) bool {
	return chatType == "group" || chatType == "supergroup"
}

func (l *Listener) chatAllowed(chatID int64) bool {
	return l.cfg.AllowedChatID == 0 || l.cfg.AllowedChatID == chatID
}

// handleChatMember bills newly joined members for the current period.
func (l *Listener) handleChatMember(ctx context.Context, upd *ChatMemberUpdated) error {
	if !isGroupChat(upd.Chat.Type) || !l.chatAllowed(upd.Chat.ID) {
		return nil
	}
	if upd.NewChatMember.Status != "member" {
		return nil
	}

	group, err := l.billing.GroupByChatID(ctx, upd.Chat.ID)
	if err != nil {
		if errors.Is(err, models.ErrGroupNotFound) {
			// group not configured yet, nothing to bill
			return nil
		}
		return err
	}

	user := upd.NewChatMember.User
	member, err := l.billing.RegisterMember(ctx, models.Member{
		TgUserID:  user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
	if err != nil {
		return err
	}
	if err := l.billing.EnsureGroupMember(ctx, group.ID, member.ID); err != nil {
		return err
	}

	inv, dueAt, err := l.billing.EnsureInvoiceAndSchedule(ctx, group.ID, member.ID)
	if err != nil {
		return err
	}
	l.logger.Infof("telegram: member %d joined chat %d, invoice %d due %s", user.ID, upd.Chat.ID, inv.ID, dueAt.Format(time.RFC3339))
	return nil
}

func (l *Listener) handleMessage(ctx context.Context, msg *Message) error {
	if msg.From == nil || !isGroupChat(msg.Chat.Type) || !l.chatAllowed(msg.Chat.ID) {
		return nil
	}
	cmd := strings.Fields(msg.Text)
	if len(cmd) == 0 {
		return nil
	}
	// commands may arrive as "/setup@BotName"
	if name, _, _ := strings.Cut(cmd[0], "@"); name != "/setup" {
		return nil
	}

	title := msg.Chat.Title
	if title == "" {
		title = "Untitled"
	}
	group, err := l.billing.SetupGroup(ctx, models.Group{
		TgChatID:    msg.Chat.ID,
		Title:       title,
		Timezone:    l.cfg.DefaultTimezone,
		DueDay:      l.cfg.DefaultDueDay,
		DueHour:     l.cfg.DefaultDueHour,
		AmountCents: l.cfg.DefaultAmountCents,
	})
	if err != nil {
		return err
	}

	reply := fmt.Sprintf("Group connected.\nAmount: %.2f\nDue: day %d at %02d:00 (%s)",
		float64(group.AmountCents)/100, group.DueDay, group.DueHour, group.Timezone)
	if err := l.client.SendMessage(ctx, group.TgChatID, reply); err != nil {
		l.logger.Errorf("telegram: setup reply to chat %d: %v", group.TgChatID, err)
	}
	return nil
}
