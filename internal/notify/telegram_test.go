package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegram_Notify(t *testing.T) {
	api := &fakeSender{}
	tg := New(api, 42, nil)

	doc := &Document{Name: "plan.xlsx", Bytes: []byte("xlsx"), Caption: strings.Repeat("я", 2000)}
	if err := tg.Notify(context.Background(), "allocate: 3 lines", doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.sent) != 2 {
		t.Fatalf("sent = %d, want 2", len(api.sent))
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok || msg.ChatID != 42 || msg.Text != "allocate: 3 lines" {
		t.Errorf("message = %+v", api.sent[0])
	}
	d, ok := api.sent[1].(tgbotapi.DocumentConfig)
	if !ok {
		t.Fatalf("second send = %T, want DocumentConfig", api.sent[1])
	}
	if n := len([]rune(d.Caption)); n != captionLimit {
		t.Errorf("caption runes = %d, want %d", n, captionLimit)
	}
	if fb, ok := d.File.(tgbotapi.FileBytes); !ok || fb.Name != "plan.xlsx" {
		t.Errorf("file = %+v", d.File)
	}
}

func TestTelegram_NotifyWithoutDocument(t *testing.T) {
	api := &fakeSender{}
	if err := New(api, 1, nil).Notify(context.Background(), "ok", nil); err != nil {
		t.Fatal(err)
	}
	if len(api.sent) != 1 {
		t.Errorf("sent = %d, want 1", len(api.sent))
	}
}

func TestTelegram_NotifyError(t *testing.T) {
	api := &fakeSender{err: errors.New("network down")}
	if err := New(api, 1, nil).Notify(context.Background(), "ok", nil); err == nil {
		t.Error("expected send error")
	}
}
