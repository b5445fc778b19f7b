package tg

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/quizmini/quiz-backend/internal/observability"
)

// Sender — отправка текстового сообщения в чат. За интерфейсом живёт
// Bot API, в тестах — заглушка.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type BotSender struct {
	bot *tgbotapi.BotAPI
}

func NewBotSender(token string) (*BotSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &BotSender{bot: bot}, nil
}

func (s *BotSender) SendMessage(_ context.Context, chatID int64, text string) error {
	_, err := s.bot.Send(tgbotapi.NewMessage(chatID, text))
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return err
}

// Считаем системными: 5xx, 429, timeout. Типичные телеграм-валидации
// (заблокировал бота, чат не найден) в Sentry не шлём.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	if strings.Contains(s, "429") || strings.Contains(s, "502") || strings.Contains(s, "503") || strings.Contains(s, "timeout") {
		return true
	}
	return false
}
