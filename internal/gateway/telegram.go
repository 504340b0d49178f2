package gateway

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramGateway struct {
	Bot    *tgbotapi.BotAPI
	ChatID int64
}

func NewTelegramGateway(token string, chatID int64) (*TelegramGateway, error) {
	return newTelegramGateway(token, tgbotapi.APIEndpoint, chatID)
}

func newTelegramGateway(token, endpoint string, chatID int64) (*TelegramGateway, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("invalid chat ID: %d", chatID)
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, err
	}
	return &TelegramGateway{Bot: bot, ChatID: chatID}, nil
}

func (tg *TelegramGateway) Name() string {
	return "telegram"
}

func (tg *TelegramGateway) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(tg.ChatID, text)
	_, err := tg.Bot.Send(msg)
	return err
}
