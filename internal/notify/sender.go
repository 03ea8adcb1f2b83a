// Package notify formats schedule change summaries and delivers them to
// subscribers over Telegram.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers one formatted message to one chat. Implementations are
// external collaborators; delivery is at-least-once.
type Sender interface {
	Send(chatID int64, text string) error
}

// TelegramSender sends messages through the Telegram Bot API.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

// NewTelegramSender wraps an authorized bot API client.
func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

// Send delivers plain text to the chat.
func (s *TelegramSender) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("sending to chat %d: %w", chatID, err)
	}
	return nil
}
