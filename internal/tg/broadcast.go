package tg

import (
	"context"
	"time"

	"github.com/quizmini/quiz-backend/internal/metrics"
)

// DefaultSendDelay — пауза между отправками, чтобы не упереться
// в лимиты Bot API.
const DefaultSendDelay = 100 * time.Millisecond

type SendFailure struct {
	TelegramID int64  `json:"telegramId"`
	Error      string `json:"error"`
}

type BroadcastReport struct {
	Sent     int           `json:"sent"`
	Failed   int           `json:"failed"`
	Total    int           `json:"total"`
	Failures []SendFailure `json:"failures,omitempty"`
}

// Broadcast шлёт text каждому получателю по очереди, одним воркером.
// Неудачные отправки копятся в отчёте, рассылка не прерывается.
// Пауза вставляется между отправками, после последней её нет.
func Broadcast(ctx context.Context, sender Sender, ids []int64, text string, delay time.Duration) BroadcastReport {
	rep := BroadcastReport{Total: len(ids)}
	for i, id := range ids {
		if err := sender.SendMessage(ctx, id, text); err != nil {
			rep.Failed++
			rep.Failures = append(rep.Failures, SendFailure{TelegramID: id, Error: err.Error()})
			metrics.BroadcastFailed.Inc()
		} else {
			rep.Sent++
			metrics.BroadcastSent.Inc()
		}
		if delay > 0 && i < len(ids)-1 {
			time.Sleep(delay)
		}
	}
	return rep
}
