package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/stock-planner/internal/planner"
)

// API — методы tgbotapi.BotAPI, которыми пользуется бот.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetFileDirectURL(fileID string) (string, error)
}

// Runner — запуск задач планировщика.
type Runner interface {
	Run(ctx context.Context, job string) (planner.RunSummary, error)
	LastRun() (planner.RunSummary, bool)
}

// Bot принимает команды администратора: запуск задач, статус
// и загрузку новой рабочей книги.
type Bot struct {
	api          API
	log          *slog.Logger
	adminChat    int64
	runner       Runner
	workbookPath string
	http         *http.Client
}

func New(api API, log *slog.Logger, adminChatID int64, runner Runner, workbookPath string) *Bot {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Bot{
		api: api, log: log, adminChat: adminChatID,
		runner: runner, workbookPath: workbookPath,
		http: &http.Client{Timeout: time.Minute},
	}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handle(ctx, upd)
		}
	}
}

func (b *Bot) handle(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		if upd.Message.Chat == nil || upd.Message.Chat.ID != b.adminChat {
			return
		}
		b.onMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		cb := upd.CallbackQuery
		if cb.Message == nil || cb.Message.Chat == nil || cb.Message.Chat.ID != b.adminChat {
			return
		}
		b.onCallback(ctx, cb)
	}
}

func (b *Bot) onMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Document != nil {
		b.onDocument(ctx, msg)
		return
	}
	if !msg.IsCommand() {
		return
	}
	switch msg.Command() {
	case "start", "help":
		m := tgbotapi.NewMessage(msg.Chat.ID, helpText)
		m.ReplyMarkup = jobsKeyboard()
		b.send(m)
	case "run":
		job := strings.TrimSpace(msg.CommandArguments())
		if job == "" {
			job = planner.JobAll
		}
		b.runJob(ctx, msg.Chat.ID, job)
	case "status":
		b.send(tgbotapi.NewMessage(msg.Chat.ID, b.statusText()))
	default:
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "Неизвестная команда. /help — список команд."))
	}
}

func (b *Bot) onCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	job, ok := strings.CutPrefix(cb.Data, "run:")
	if !ok {
		_ = b.answerCallback(cb, "", false)
		return
	}
	_ = b.answerCallback(cb, "Запускаю "+job, false)
	b.runJob(ctx, cb.Message.Chat.ID, job)
}

// runJob запускает задачу; сводку и отчёт присылает уведомитель планировщика,
// здесь сообщаем только об ошибке.
func (b *Bot) runJob(ctx context.Context, chatID int64, job string) {
	if _, err := planner.ParseJob(job); err != nil {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Неизвестная задача %q. Доступны: analyze, allocate, reconcile, all.", job)))
		return
	}
	b.log.Info("job requested from chat", "job", job, "chat_id", chatID)
	if _, err := b.runner.Run(ctx, job); err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Прогон завершился ошибкой: "+err.Error()))
	}
}

func (b *Bot) statusText() string {
	last, ok := b.runner.LastRun()
	if !ok {
		return "Прогонов ещё не было."
	}
	return last.Text()
}

const helpText = `Команды:
/run [analyze|allocate|reconcile|all] — запустить задачу
/status — итог последнего прогона
Пришлите .xlsx, чтобы заменить рабочую книгу.`
