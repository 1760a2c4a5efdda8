package sheets

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/stock-planner/internal/domain/allocation"
	"github.com/Spok95/stock-planner/internal/domain/demand"
	"github.com/Spok95/stock-planner/internal/domain/reconcile"
)

// Имена листов отчёта.
const (
	SheetAnalyzed    = "amz_fba_report_analyzed"
	SheetAllocation  = "FBA Inventory Analysis"
	SheetRemaining   = "Remaining Inventory Summary"
	SheetNeeds       = "Inventory Breakdown"
	SheetReconcile   = "Reconciliation"
	noteAuthor       = "stock-planner"
	defaultSheetName = "Sheet1"
)

// Report пишет листы результата в книгу. Существующий лист с тем же
// именем пересоздаётся.
type Report struct {
	f     *excelize.File
	st    styles
	fresh bool
}

// NewReport — отчёт в новой книге.
func NewReport() (*Report, error) {
	f := excelize.NewFile()
	r, err := newReport(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.fresh = true
	return r, nil
}

// ReportInto — отчёт поверх входной книги.
func ReportInto(w *Workbook) (*Report, error) { return newReport(w.f) }

func newReport(f *excelize.File) (*Report, error) {
	st, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("styles: %w", err)
	}
	return &Report{f: f, st: st}, nil
}

func (r *Report) File() *excelize.File { return r.f }

func (r *Report) Write(w io.Writer) error { return r.f.Write(w) }

func (r *Report) Bytes() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := r.f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Report) SaveAs(path string) error { return r.f.SaveAs(path) }

func (r *Report) Close() error { return r.f.Close() }

// sheet готовит чистый лист с заголовком.
func (r *Report) sheet(name string, header []interface{}) error {
	if r.fresh {
		// первый лист новой книги переименовываем, а не держим пустым
		r.fresh = false
		if err := r.f.SetSheetName(defaultSheetName, name); err != nil {
			return err
		}
	} else {
		idx, err := r.f.GetSheetIndex(name)
		if err != nil {
			return err
		}
		if idx >= 0 {
			if err := r.f.DeleteSheet(name); err != nil {
				return err
			}
		}
		if _, err := r.f.NewSheet(name); err != nil {
			return err
		}
	}
	return r.f.SetSheetRow(name, "A1", &header)
}

func (r *Report) row(sheet string, n int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	return r.f.SetSheetRow(sheet, cell, &values)
}

func (r *Report) fill(sheet string, col, row, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return r.f.SetCellStyle(sheet, cell, cell, style)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

/* Анализ отчёта */

var analyzedHeader = []interface{}{
	"sku", "product-name", "available",
	"units-shipped-t7", "units-shipped-t30", "units-shipped-t60", "units-shipped-t90",
	"sales-shipped-last-7-days", "sales-shipped-last-30-days", "sales-shipped-last-60-days", "sales-shipped-last-90-days",
	"Recommended ship-in quantity", "Recommended ship-in date",
	"Bundle Type", "Daily Velocity", "Weeks of Cover", "Best Daily Avg ($)", "Best Period",
	"Priority Score", "Priority Rank", "Sales Priority", "Days of Cover at Reco",
}

func (r *Report) WriteAnalyzed(rows []demand.Analyzed) error {
	if err := r.sheet(SheetAnalyzed, analyzedHeader); err != nil {
		return err
	}
	for i, a := range rows {
		n := i + 2
		if err := r.row(SheetAnalyzed, n, []interface{}{
			a.SKU, a.ProductName, a.Available,
			a.UnitsT7, a.UnitsT30, a.UnitsT60, a.UnitsT90,
			a.SalesT7.InexactFloat64(), a.SalesT30.InexactFloat64(), a.SalesT60.InexactFloat64(), a.SalesT90.InexactFloat64(),
			a.RecommendedQty, a.RecommendedDate,
			a.BundleType, round2(a.DailyVelocity), round1(a.WeeksOfCover),
			a.BestDailyAvg.Round(2).InexactFloat64(), demand.PeriodLabel(a.BestPeriod),
			round2(a.PriorityScore), a.PriorityRank, string(a.PriorityClass), a.CoverageAtReco,
		}); err != nil {
			return err
		}
		if err := r.fill(SheetAnalyzed, 21, n, r.st.level(a.PriorityClass.Order())); err != nil {
			return err
		}
	}
	return decorate(r.f, SheetAnalyzed, r.st, len(analyzedHeader), len(rows))
}

/* Распределение */

var allocationHeader = []interface{}{
	"Sales Priority", "Priority Number", "Daily Avg Sales ($)", "SKU", "Product Name", "Type",
	"Current Available", "Daily Velocity", "Recommended Qty", "Scheduled Qty",
	"Total Available After Shipment", "Can Fulfill?", "Backorder Risk", "Fulfillable Qty",
	"Days of Coverage", "No. of Components", "Components", "Component Details", "Total Weight (oz)",
}

const (
	colCanFulfill = 12
	colRisk       = 13
	colDetails    = "R"
)

func statusLevel(s allocation.Status) int {
	switch s {
	case allocation.StatusYes:
		return 0
	case allocation.StatusPartial:
		return 1
	}
	return 2
}

func riskLevel(r allocation.Risk) int {
	switch r {
	case allocation.RiskLow:
		return 0
	case allocation.RiskMedium:
		return 1
	}
	return 2
}

// componentList — «Имя xN» через запятую.
func componentList(cs []allocation.ComponentUsage) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		if c.QtyPerUnit > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", c.Name, c.QtyPerUnit))
		} else {
			parts = append(parts, c.Name)
		}
	}
	return strings.Join(parts, ", ")
}

// componentDetails — построчная расшифровка расхода для примечания.
func componentDetails(cs []allocation.ComponentUsage) string {
	lines := make([]string, 0, len(cs))
	for _, c := range cs {
		lines = append(lines, fmt.Sprintf("%s (%s): needed %d, available %d, used %d",
			c.Name, c.ComponentID, c.Needed, c.AvailableBefore, c.Used))
	}
	return strings.Join(lines, "\n")
}

func (r *Report) WriteAllocation(plan allocation.Plan) error {
	if err := r.sheet(SheetAllocation, allocationHeader); err != nil {
		return err
	}
	for i, res := range plan.Results {
		n := i + 2
		l := res.Line
		details := componentDetails(res.Components)
		if err := r.row(SheetAllocation, n, []interface{}{
			string(l.PriorityClass), l.PriorityRank, round2(l.DailyAvgSales), l.SKU, l.ProductName, string(res.Type),
			l.CurrentAvailable, round2(l.DailyVelocity), l.RecommendedQty, l.ScheduledQty,
			res.TotalAfterShipment, string(res.Status), string(res.BackorderRisk), res.Fulfillable,
			round1(res.DaysOfCoverage), len(res.Components), componentList(res.Components), details, round2(res.WeightOz),
		}); err != nil {
			return err
		}
		if err := r.fill(SheetAllocation, colCanFulfill, n, r.st.level(statusLevel(res.Status))); err != nil {
			return err
		}
		if err := r.fill(SheetAllocation, colRisk, n, r.st.level(riskLevel(res.BackorderRisk))); err != nil {
			return err
		}
		if details == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(colCanFulfill, n)
		if err != nil {
			return err
		}
		if err := r.f.AddComment(SheetAllocation, excelize.Comment{Cell: cell, Author: noteAuthor, Text: details}); err != nil {
			return err
		}
	}
	if err := r.f.SetColVisible(SheetAllocation, colDetails, false); err != nil {
		return err
	}
	if err := r.f.SetColWidth(SheetAllocation, "E", "E", 40); err != nil {
		return err
	}
	if err := r.f.SetColWidth(SheetAllocation, "Q", "Q", 50); err != nil {
		return err
	}
	return decorate(r.f, SheetAllocation, r.st, len(allocationHeader), len(plan.Results))
}

/* Остатки */

var remainingHeader = []interface{}{"Component Name", "UPC", "Remaining Quantity"}

func (r *Report) WriteRemaining(rows []allocation.RemainingRow) error {
	if err := r.sheet(SheetRemaining, remainingHeader); err != nil {
		return err
	}
	for i, it := range rows {
		if err := r.row(SheetRemaining, i+2, []interface{}{it.Name, it.ComponentID, it.Remaining}); err != nil {
			return err
		}
	}
	if err := r.f.SetColWidth(SheetRemaining, "A", "A", 40); err != nil {
		return err
	}
	return decorate(r.f, SheetRemaining, r.st, len(remainingHeader), len(rows))
}

/* Потребность в компонентах */

var needsHeader = []interface{}{
	"Item", "UPC", "Total Needed for Single", "Total Needed for Bundle", "Available", "Shortfall", "Can Fulfill?",
}

func (r *Report) WriteNeeds(needs []allocation.ComponentNeed) error {
	if err := r.sheet(SheetNeeds, needsHeader); err != nil {
		return err
	}
	for i, nd := range needs {
		n := i + 2
		can, level := "No", 2
		if nd.CanFulfill() {
			can, level = "Yes", 0
		}
		if err := r.row(SheetNeeds, n, []interface{}{
			nd.Name, nd.ComponentID, nd.SingleNeed, nd.BundleNeed, nd.Available, nd.Shortfall, can,
		}); err != nil {
			return err
		}
		if err := r.fill(SheetNeeds, len(needsHeader), n, r.st.level(level)); err != nil {
			return err
		}
	}
	return decorate(r.f, SheetNeeds, r.st, len(needsHeader), len(needs))
}

/* Сверка */

var reconcileHeader = []interface{}{"Legacy SKU", "Item Name", "Search Status", "Matched SKU", "Translated Components", "Error"}

func partsText(parts []reconcile.Part) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, fmt.Sprintf("%s x%d", p.ComponentID, p.Qty))
	}
	return strings.Join(out, ", ")
}

func searchLevel(s reconcile.SearchStatus) int {
	switch s {
	case reconcile.StatusMatchFound:
		return 0
	case reconcile.StatusError:
		return 2
	}
	return 1
}

func (r *Report) WriteReconcile(outcomes []reconcile.Outcome) error {
	if err := r.sheet(SheetReconcile, reconcileHeader); err != nil {
		return err
	}
	for i, o := range outcomes {
		n := i + 2
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		if err := r.row(SheetReconcile, n, []interface{}{
			o.LegacySKU, o.ItemName, string(o.Status), o.MatchedSKU, partsText(o.Translated), errText,
		}); err != nil {
			return err
		}
		if err := r.fill(SheetReconcile, 3, n, r.st.level(searchLevel(o.Status))); err != nil {
			return err
		}
	}
	return decorate(r.f, SheetReconcile, r.st, len(reconcileHeader), len(outcomes))
}
