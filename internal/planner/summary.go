package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Spok95/stock-planner/internal/domain/reconcile"
)

// RunSummary — итог одного прогона (для /runs/latest и уведомления).
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Job       string        `json:"job"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	AnalyzedSKUs     int            `json:"analyzed_skus"`
	DemandLines      int            `json:"demand_lines"`
	Allocated        int            `json:"allocated_lines"`
	Statuses         map[string]int `json:"statuses,omitempty"`
	FulfillableUnits int            `json:"fulfillable_units"`
	Warnings         int            `json:"warnings"`
	Shortfalls       int            `json:"component_shortfalls"`

	Reconciled map[string]int     `json:"reconciled,omitempty"`
	WriteBack  *reconcile.Summary `json:"write_back,omitempty"`

	ReportFile string `json:"report_file,omitempty"`
	Error      string `json:"error,omitempty"`
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func counts(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s: %d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

// Text — сводка для чата.
func (s RunSummary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Прогон %s (%s), %s\n", s.Job, s.RunID[:min(8, len(s.RunID))], s.Duration.Round(time.Millisecond))
	if s.Error != "" {
		fmt.Fprintf(&b, "Ошибка: %s\n", s.Error)
	}
	if s.AnalyzedSKUs > 0 {
		fmt.Fprintf(&b, "SKU в отчёте: %d, строк спроса: %d\n", s.AnalyzedSKUs, s.DemandLines)
	}
	if s.Allocated > 0 || s.Warnings > 0 {
		fmt.Fprintf(&b, "Распределено строк: %d (%s), единиц: %d\n", s.Allocated, counts(s.Statuses), s.FulfillableUnits)
		if s.Warnings > 0 {
			fmt.Fprintf(&b, "Пропущено с предупреждением: %d\n", s.Warnings)
		}
		if s.Shortfalls > 0 {
			fmt.Fprintf(&b, "Компонентов с нехваткой: %d\n", s.Shortfalls)
		}
	}
	if len(s.Reconciled) > 0 {
		fmt.Fprintf(&b, "Сверка: %s\n", counts(s.Reconciled))
	}
	if wb := s.WriteBack; wb != nil {
		fmt.Fprintf(&b, "Записано: %d, пропущено: %d, ошибок: %d, не найдено: %d\n",
			wb.Updated, wb.Skipped, wb.Errors, wb.SKUNotFound)
	}
	return strings.TrimRight(b.String(), "\n")
}
