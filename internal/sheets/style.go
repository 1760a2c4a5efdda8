package sheets

import (
	"github.com/xuri/excelize/v2"
)

// Цвета подсветки статусов.
const (
	colorGreen  = "#d9ead3"
	colorYellow = "#fff2cc"
	colorRed    = "#f4c7c3"
	colorHeader = "#f3f3f3"
)

type styles struct {
	header int
	green  int
	yellow int
	red    int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorHeader}},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "center"},
	})
	if err != nil {
		return s, err
	}
	fill := func(color string) (int, error) {
		return f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
	}
	if s.green, err = fill(colorGreen); err != nil {
		return s, err
	}
	if s.yellow, err = fill(colorYellow); err != nil {
		return s, err
	}
	if s.red, err = fill(colorRed); err != nil {
		return s, err
	}
	return s, nil
}

// level: 0 — хорошо, 1 — частично, 2 — плохо.
func (s styles) level(l int) int {
	switch l {
	case 0:
		return s.green
	case 1:
		return s.yellow
	}
	return s.red
}

// decorate оформляет шапку: заливка, закреплённая первая строка и автофильтр.
func decorate(f *excelize.File, sheet string, hs styles, cols, rows int) error {
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", hs.header); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	br, err := excelize.CoordinatesToCellName(cols, max(rows, 1)+1)
	if err != nil {
		return err
	}
	return f.AutoFilter(sheet, "A1:"+br, nil)
}
