package alert

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"dexradar/internal/domain"
)

// sender is the subset of tgbotapi.BotAPI used here, split out for tests.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier delivers alerts as Telegram messages.
type TelegramNotifier struct {
	api    sender
	chatID int64
	logger zerolog.Logger
}

// NewTelegramNotifier creates a notifier posting to chatID.
func NewTelegramNotifier(token string, chatID int64, logger zerolog.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{api: api, chatID: chatID, logger: logger}, nil
}

// Notify formats and sends one alert message.
func (n *TelegramNotifier) Notify(_ context.Context, a domain.Alert) error {
	msg := tgbotapi.NewMessage(n.chatID, formatMessage(a))
	msg.ParseMode = "Markdown"
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	return nil
}

func formatMessage(a domain.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* on %s\n", a.TokenSymbol, a.ChainID)
	fmt.Fprintf(&b, "Score: %d | Tier: %s | %s\n", a.FinalScore, a.Tier, a.Recommendation)
	fmt.Fprintf(&b, "Pair: `%s`\n", a.PairID)

	for _, tag := range a.Tags {
		if tag.Status == domain.TagGreen {
			fmt.Fprintf(&b, "✅ %s\n", tag.Name)
		}
	}
	for _, flag := range a.CriticalFlags {
		fmt.Fprintf(&b, "🚩 %s\n", flag)
	}
	return b.String()
}
