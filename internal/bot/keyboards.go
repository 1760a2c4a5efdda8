package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/stock-planner/internal/planner"
)

func jobsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Анализ", "run:"+planner.JobAnalyze),
			tgbotapi.NewInlineKeyboardButtonData("📦 Распределение", "run:"+planner.JobAllocate),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Сверка", "run:"+planner.JobReconcile),
			tgbotapi.NewInlineKeyboardButtonData("▶️ Всё", "run:"+planner.JobAll),
		),
	)
}
