package sheets

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var (
	ErrSheetMissing   = errors.New("sheet missing")
	ErrColumnsMissing = errors.New("required columns missing")
)

// table — лист, прочитанный целиком, с индексом колонок по заголовку.
// Заголовки сравниваются без регистра и пробелов.
type table struct {
	name  string
	cols  map[string]int
	width int
	rows  [][]string
}

func headerKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func readTable(f *excelize.File, sheet string, required ...string) (*table, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSheetMissing, sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	t := &table{name: sheet, cols: make(map[string]int)}
	if len(rows) == 0 {
		if len(required) > 0 {
			return nil, fmt.Errorf("%w: %s: %s", ErrColumnsMissing, sheet, strings.Join(required, ", "))
		}
		return t, nil
	}
	t.width = len(rows[0])
	for i, h := range rows[0] {
		k := headerKey(h)
		if _, dup := t.cols[k]; !dup && k != "" {
			t.cols[k] = i
		}
	}
	var missing []string
	for _, r := range required {
		if _, ok := t.cols[headerKey(r)]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s: %s", ErrColumnsMissing, sheet, strings.Join(missing, ", "))
	}
	t.rows = rows[1:]
	return t, nil
}

func (t *table) has(col string) bool {
	_, ok := t.cols[headerKey(col)]
	return ok
}

func (t *table) str(row []string, col string) string {
	i, ok := t.cols[headerKey(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// num — число из ячейки; пустое или нечисловое значение даёт 0.
func (t *table) num(row []string, col string) float64 {
	v, err := strconv.ParseFloat(cleanNumber(t.str(row, col)), 64)
	if err != nil {
		return 0
	}
	return v
}

func (t *table) integer(row []string, col string) int {
	return int(math.Round(t.num(row, col)))
}

func (t *table) dec(row []string, col string) decimal.Decimal {
	d, err := decimal.NewFromString(cleanNumber(t.str(row, col)))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func cleanNumber(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	return strings.TrimSpace(s)
}

// columnIndex — 1-based номер колонки по заголовку (0, если нет).
func (t *table) columnIndex(col string) int {
	i, ok := t.cols[headerKey(col)]
	if !ok {
		return 0
	}
	return i + 1
}
