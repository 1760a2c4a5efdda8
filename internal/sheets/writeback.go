package sheets

import (
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/stock-planner/internal/domain/reconcile"
)

// LegacyWriter записывает результаты сверки в лист WalmartExport.
// Недостающие колонки результата дописываются в конец шапки.
type LegacyWriter struct {
	wb   *Workbook
	rows map[string]int // SKU -> номер строки (1-based)
	cols map[string]int // колонка результата -> номер (1-based)
}

func NewLegacyWriter(wb *Workbook) (*LegacyWriter, error) {
	t, err := readTable(wb.f, SheetLegacy, "SKU")
	if err != nil {
		return nil, err
	}
	w := &LegacyWriter{wb: wb, rows: make(map[string]int), cols: make(map[string]int)}
	for i, row := range t.rows {
		sku := t.str(row, "SKU")
		if _, dup := w.rows[sku]; sku != "" && !dup {
			w.rows[sku] = i + 2
		}
	}
	next := t.width + 1
	for _, name := range []string{colSearchStatus, colStatus, colMatchedSKU} {
		if t.has(name) {
			w.cols[name] = t.columnIndex(name)
			continue
		}
		cell, err := excelize.CoordinatesToCellName(next, 1)
		if err != nil {
			return nil, err
		}
		if err := wb.f.SetCellValue(SheetLegacy, cell, name); err != nil {
			return nil, err
		}
		w.cols[name] = next
		next++
	}
	return w, nil
}

// WriteOutcome реализует reconcile.Writer; found=false, если SKU нет в листе.
func (w *LegacyWriter) WriteOutcome(ctx context.Context, legacySKU string, search reconcile.SearchStatus, status reconcile.WriteStatus, matchedSKU string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n, ok := w.rows[strings.TrimSpace(legacySKU)]
	if !ok {
		return false, nil
	}
	for name, v := range map[string]string{
		colSearchStatus: string(search),
		colStatus:       string(status),
		colMatchedSKU:   matchedSKU,
	} {
		cell, err := excelize.CoordinatesToCellName(w.cols[name], n)
		if err != nil {
			return true, err
		}
		if err := w.wb.f.SetCellValue(SheetLegacy, cell, v); err != nil {
			return true, err
		}
	}
	return true, nil
}
