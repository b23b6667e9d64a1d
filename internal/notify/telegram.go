package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// telegramClient is the subset of *tgbotapi.BotAPI the adapter needs,
// narrowed so tests can substitute a fake in place of a live bot.
type telegramClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramAdapter implements Adapter via the Telegram Bot API. channelTarget
// is the chat ID as a decimal string.
type TelegramAdapter struct {
	bot   telegramClient
	chats PerChat
}

// NewTelegramAdapter creates a new TelegramAdapter from an already-built
// tgbotapi client, mirroring the retrieval pack's telegram notifier's
// client-injection shape so tests can substitute a fake client.
func NewTelegramAdapter(bot telegramClient) *TelegramAdapter {
	return &TelegramAdapter{bot: bot}
}

func (t *TelegramAdapter) Name() domain.Channel { return domain.ChannelTelegram }

// Send posts payload as an HTML-formatted Telegram message to chatID.
func (t *TelegramAdapter) Send(ctx context.Context, channelTarget string, payload domain.NotificationPayload) error {
	chatID, err := strconv.ParseInt(channelTarget, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing telegram chat id %q: %w", channelTarget, err)
	}

	return t.chats.Do(channelTarget, func() error {
		msg := tgbotapi.NewMessage(chatID, renderTelegramMessage(payload))
		msg.ParseMode = tgbotapi.ModeHTML

		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("sending telegram message: %w", err)
		}
		return nil
	})
}

func renderTelegramMessage(p domain.NotificationPayload) string {
	price := formatPrice(p)
	if hasDiscount(p) {
		return fmt.Sprintf(
			"<b>%s</b>\nNowa cena: <b>%s</b> (limit: %s zł)\nSklep: %s\n%s",
			p.ProductName, price, p.MaxPrice.StringFixed(2), p.ShopName, p.ProductURL,
		)
	}
	return fmt.Sprintf(
		"<b>%s</b>\nNowa cena: <b>%s</b>\nSklep: %s\n%s",
		p.ProductName, price, p.ShopName, p.ProductURL,
	)
}
