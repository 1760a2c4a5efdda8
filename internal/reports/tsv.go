package reports

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Spok95/stock-planner/internal/domain/demand"
)

// ParseTSV разбирает отчёт с табуляцией в строки по заголовку.
// Ключи заголовка нормализуются: нижний регистр, без пробелов, дефисов и подчёркиваний.
func ParseTSV(data []byte) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = key(strings.TrimPrefix(h, "\ufeff"))
	}

	var out []map[string]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(keys))
		for i, k := range keys {
			if i < len(rec) && k != "" {
				row[k] = strings.TrimSpace(rec[i])
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func key(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

func field(row map[string]string, name string) string { return row[key(name)] }

func intField(row map[string]string, name string) int {
	f, err := strconv.ParseFloat(strings.ReplaceAll(field(row, name), ",", ""), 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func decField(row map[string]string, name string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(field(row, name), ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ReportRows переводит строки отчёта планирования в строки спроса.
func ReportRows(rows []map[string]string) []demand.ReportRow {
	out := make([]demand.ReportRow, 0, len(rows))
	for _, row := range rows {
		sku := field(row, "sku")
		if sku == "" {
			continue
		}
		out = append(out, demand.ReportRow{
			SKU:             sku,
			ProductName:     field(row, "product-name"),
			Available:       intField(row, "available"),
			UnitsT7:         intField(row, "units-shipped-t7"),
			UnitsT30:        intField(row, "units-shipped-t30"),
			UnitsT60:        intField(row, "units-shipped-t60"),
			UnitsT90:        intField(row, "units-shipped-t90"),
			SalesT7:         decField(row, "sales-shipped-last-7-days"),
			SalesT30:        decField(row, "sales-shipped-last-30-days"),
			SalesT60:        decField(row, "sales-shipped-last-60-days"),
			SalesT90:        decField(row, "sales-shipped-last-90-days"),
			RecommendedQty:  intField(row, "recommended-ship-in-quantity"),
			RecommendedDate: field(row, "recommended-ship-in-date"),
		})
	}
	return out
}
