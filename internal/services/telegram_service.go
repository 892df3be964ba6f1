package services

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramService pushes assignment notifications to users who linked a
// Telegram chat. Nil-tolerant: a nil service or a zero chat id is a no-op.
type TelegramService struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramService(botToken string) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	log.Printf("[tg] authorized as @%s", bot.Self.UserName)
	return &TelegramService{bot: bot}, nil
}

func (t *TelegramService) SendLeadAssigned(chatID int64, userName, leadTitle, reason string) error {
	if t == nil || chatID == 0 {
		return nil
	}
	text := fmt.Sprintf("📥 %s, the lead <b>%s</b> was assigned to you (%s).", userName, leadTitle, reason)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
