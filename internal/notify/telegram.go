// Package notify sends operational alerts to an admin Telegram chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier pushes provider outage alerts to a configured chat so an
// operator hears about a full gateway failure before users start asking.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

func NewTelegramNotifier(token string, chatID int64, log *slog.Logger) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram token and admin chat id are required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, log: log}, nil
}

// ProviderOutage reports that every configured provider failed for a request.
// Delivery is best effort and never influences the request outcome.
func (n *TelegramNotifier) ProviderOutage(_ context.Context, err error) {
	msg := tgbotapi.NewMessage(n.chatID, fmt.Sprintf("⚠️ image generation outage: %v", err))
	if _, sendErr := n.bot.Send(msg); sendErr != nil {
		n.log.Error("send outage alert", "err", sendErr)
	}
}
