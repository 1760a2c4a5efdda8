package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// captionLimit — ограничение Telegram на подпись к документу.
const captionLimit = 1024

// Sender — часть tgbotapi.BotAPI, нужная для отправки.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Document — файл отчёта для отправки.
type Document struct {
	Name    string
	Bytes   []byte
	Caption string
}

// Telegram отправляет итоги прогонов в чат администратора.
type Telegram struct {
	api    Sender
	chatID int64
	log    *slog.Logger
}

func New(api Sender, chatID int64, log *slog.Logger) *Telegram {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Telegram{api: api, chatID: chatID, log: log}
}

// Notify отправляет текст и, если есть, документ.
func (t *Telegram) Notify(ctx context.Context, text string, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if doc == nil || len(doc.Bytes) == 0 {
		return nil
	}
	msg := tgbotapi.NewDocument(t.chatID, tgbotapi.FileBytes{Name: doc.Name, Bytes: doc.Bytes})
	msg.Caption = truncate(doc.Caption, captionLimit)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	t.log.Info("report sent", "chat_id", t.chatID, "file", doc.Name, "bytes", len(doc.Bytes))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
