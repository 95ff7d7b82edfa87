package telegram

import (
	"chatguard/backend/internal/localization"
	"chatguard/backend/internal/models"
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotSender is the part of tgbotapi.BotAPI the notifier needs.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts escalation alerts to the support staff chat.
// It satisfies antispam.Notifier.
type Notifier struct {
	Bot         BotSender
	AdminChatID int64
	Localizer   *localization.Localizer
}

// NewNotifier creates a Notifier that sends through bot.
func NewNotifier(bot BotSender, adminChatID int64, localizer *localization.Localizer) *Notifier {
	return &Notifier{Bot: bot, AdminChatID: adminChatID, Localizer: localizer}
}

// RoomBlocked reports a room that was temporarily blocked for flooding.
func (n *Notifier) RoomBlocked(ctx context.Context, room *models.ChatRoom) error {
	until := "-"
	if room.DisabledUntil != nil {
		until = room.DisabledUntil.UTC().Format(time.RFC3339)
	}
	text := fmt.Sprintf(n.text("notify.room_blocked"),
		room.RoomID, room.OrderID, room.ClientEmail, until, room.ConsecutiveMessages)
	return n.send(ctx, text)
}

// SpamThresholdReached reports a room whose spam score crossed the severe threshold.
func (n *Notifier) SpamThresholdReached(ctx context.Context, room *models.ChatRoom) error {
	text := fmt.Sprintf(n.text("notify.spam_threshold"),
		room.RoomID, room.OrderID, room.ClientEmail, room.SpamScore)
	return n.send(ctx, text)
}

func (n *Notifier) text(key string) string {
	return n.Localizer.GetString(localization.DefaultLanguage, key)
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.AdminChatID == 0 {
		return fmt.Errorf("telegram admin chat is not configured")
	}
	msg := tgbotapi.NewMessage(n.AdminChatID, text)
	if _, err := n.Bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}
