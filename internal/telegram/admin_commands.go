package telegram

import (
	"chatguard/backend/internal/models"
	"chatguard/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AdminActions defines the engine operations reachable from the staff chat.
type AdminActions interface {
	Unblock(ctx context.Context, roomID string) error
	ResetSpamScore(ctx context.Context, roomID string) error
	GetStatusSummary(ctx context.Context, roomID string) (*models.UserStats, error)
}

// HandleAdminCommand processes /unblock, /resetspam and /status <room_id> sent in the
// admin chat and replies with the result. Updates from other chats are ignored.
func HandleAdminCommand(ctx context.Context, update *tgbotapi.Update, actions AdminActions, bot BotSender, adminChatID int64) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	chatID := update.Message.Chat.ID
	if chatID != adminChatID {
		log.Printf("WARNING: Ignoring admin command from chat %d.", chatID)
		return
	}

	roomID := strings.TrimSpace(update.Message.CommandArguments())
	var responseText string

	switch update.Message.Command() {
	case "unblock", "resetspam", "status":
		if roomID == "" {
			responseText = fmt.Sprintf("Usage: /%s <room_id>", update.Message.Command())
			break
		}
		responseText = runAdminCommand(ctx, update.Message.Command(), roomID, actions)
	default:
		return
	}

	msg := tgbotapi.NewMessage(chatID, responseText)
	if _, err := bot.Send(msg); err != nil {
		log.Printf("ERROR: Failed to send admin command reply: %v", err)
	}
}

func runAdminCommand(ctx context.Context, command, roomID string, actions AdminActions) string {
	var err error
	switch command {
	case "unblock":
		if err = actions.Unblock(ctx, roomID); err == nil {
			return fmt.Sprintf("Room %s unblocked.", roomID)
		}
	case "resetspam":
		if err = actions.ResetSpamScore(ctx, roomID); err == nil {
			return fmt.Sprintf("Spam score of room %s reset.", roomID)
		}
	case "status":
		var stats *models.UserStats
		if stats, err = actions.GetStatusSummary(ctx, roomID); err == nil {
			return formatStats(stats)
		}
	}

	if errors.Is(err, storage.ErrRoomNotFound) {
		return fmt.Sprintf("Room %s not found.", roomID)
	}
	log.Printf("ERROR: Admin command /%s for room %s failed: %v", command, roomID, err)
	return "An error occurred while processing your request."
}

func formatStats(s *models.UserStats) string {
	return fmt.Sprintf(
		"Room %s\nstatus: %s\npayment: %s\nmessages: %d (%d without reply)\nconsecutive: %d\nspam score: %d (%d flagged)\nviolations: %d\nrate limited: %t",
		s.RoomID, s.UserStatus, s.PaymentStatus,
		s.TotalMessages, s.MessagesWithoutAdminReply,
		s.ConsecutiveMessages, s.SpamScore, s.SpamWarnings,
		s.RateLimitViolations, s.IsRateLimited,
	)
}
