// Package telegram connects the support staff chat on Telegram to the anti-abuse
// engine. It pushes escalation alerts to the staff chat and accepts moderation
// commands from it.
package telegram

import (
	"chatguard/backend/internal/localization"
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotService receives updates from the staff chat and routes commands to the engine.
type BotService struct {
	BotAPI      *tgbotapi.BotAPI
	Actions     AdminActions
	Notifier    *Notifier
	AdminChatID int64
}

// NewBotService authorizes the bot and builds the staff chat notifier on top of it.
func NewBotService(token string, adminChatID int64, actions AdminActions, localizer *localization.Localizer) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	bot.Debug = false
	log.Printf("INFO: Authorized on account %s", bot.Self.UserName)

	return &BotService{
		BotAPI:      bot,
		Actions:     actions,
		Notifier:    NewNotifier(bot, adminChatID, localizer),
		AdminChatID: adminChatID,
	}, nil
}

// Run is the main loop for receiving Telegram updates. It returns when ctx is done.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)
	defer s.BotAPI.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			HandleAdminCommand(ctx, &update, s.Actions, s.BotAPI, s.AdminChatID)
		}
	}
}
