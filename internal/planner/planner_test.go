package planner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/stock-planner/internal/domain/allocation"
	"github.com/Spok95/stock-planner/internal/domain/catalog"
	"github.com/Spok95/stock-planner/internal/domain/demand"
	"github.com/Spok95/stock-planner/internal/domain/inventory"
	"github.com/Spok95/stock-planner/internal/domain/reconcile"
	"github.com/Spok95/stock-planner/internal/infra/metrics"
	"github.com/Spok95/stock-planner/internal/notify"
	"github.com/Spok95/stock-planner/internal/sheets"
)

type fakeSource struct {
	report   []demand.ReportRow
	ships    []demand.Shipment
	rec      *ReconcileInput
	reportEr error
	catErr   error
	invErr   error
	replaced []demand.ReportRow
}

func (f *fakeSource) Catalog(context.Context) (*catalog.Catalog, error) {
	if f.catErr != nil {
		return nil, f.catErr
	}
	return catalog.FromRows([]catalog.Row{
		{SKU: "SGL-1", Type: "Single", ComponentID: "U1", Component: "Garlic Salt", Quantity: 1, WeightOz: 4},
		{SKU: "COMBO-X", Type: "Combo", ComponentID: "U1", Component: "Garlic Salt", Quantity: 1},
		{SKU: "COMBO-X", Type: "Combo", ComponentID: "U2", Component: "Honey BBQ", Quantity: 1},
	}, nil), nil
}

func (f *fakeSource) Inventory(context.Context) (*inventory.Snapshot, error) {
	if f.invErr != nil {
		return nil, f.invErr
	}
	return inventory.FromRows([]inventory.Row{{ComponentID: "U1", Qty: 100}, {ComponentID: "U2", Qty: 5}}), nil
}

func (f *fakeSource) Report(context.Context) ([]demand.ReportRow, error) { return f.report, f.reportEr }

func (f *fakeSource) Shipments(context.Context) ([]demand.Shipment, error) { return f.ships, nil }

func (f *fakeSource) Requests(context.Context) ([]allocation.Request, error) { return nil, nil }

func (f *fakeSource) Reconciliation(context.Context) (*ReconcileInput, error) {
	if f.rec == nil {
		return nil, errors.New("no reconciliation data")
	}
	return f.rec, nil
}

func (f *fakeSource) ReplaceReport(_ context.Context, rows []demand.ReportRow) error {
	f.replaced = rows
	return nil
}

func reportRows() []demand.ReportRow {
	return []demand.ReportRow{
		{SKU: "SGL-1", ProductName: "Garlic Salt", Available: 10, UnitsT90: 90, SalesT90: decimal.NewFromInt(900), RecommendedQty: 45},
		{SKU: "COMBO-X", ProductName: "BBQ Trio", Available: 0, UnitsT90: 45, SalesT90: decimal.NewFromInt(450), RecommendedQty: 10},
		{SKU: "OLD", ProductName: "Retired", UnitsT90: 9, SalesT90: decimal.NewFromInt(90), RecommendedQty: 5},
	}
}

type snapshotRecorder struct {
	runID uuid.UUID
	total int
}

func (s *snapshotRecorder) SaveSnapshot(_ context.Context, id uuid.UUID, snap *inventory.Snapshot) error {
	s.runID, s.total = id, snap.Total()
	return nil
}

type notifierRecorder struct {
	text string
	doc  *notify.Document
	hook func()
}

func (n *notifierRecorder) Notify(_ context.Context, text string, doc *notify.Document) error {
	n.text, n.doc = text, doc
	if n.hook != nil {
		n.hook()
	}
	return nil
}

func testOptions() Options {
	return Options{
		Allocation:      allocation.DefaultParams(),
		Weights:         demand.DefaultWeights(),
		Discontinued:    []string{"OLD"},
		ScheduledStatus: "Prep",
	}
}

func TestPlanner_RunAllocate(t *testing.T) {
	src := &fakeSource{report: reportRows()}
	snaps := &snapshotRecorder{}
	note := &notifierRecorder{}
	m := metrics.New()
	opts := testOptions()
	opts.OutputDir = t.TempDir()
	opts.Snapshots = snaps
	opts.Notifier = note
	opts.Metrics = m

	p := New(src, opts, nil)
	sum, err := p.Run(context.Background(), JobAllocate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sum.AnalyzedSKUs != 2 || sum.DemandLines != 2 || sum.Allocated != 2 {
		t.Errorf("counts = %d/%d/%d, want 2/2/2", sum.AnalyzedSKUs, sum.DemandLines, sum.Allocated)
	}
	if sum.FulfillableUnits != 50 {
		t.Errorf("FulfillableUnits = %d, want 50", sum.FulfillableUnits)
	}
	if sum.Statuses["Yes"] != 1 || sum.Statuses["Partial"] != 1 {
		t.Errorf("Statuses = %v", sum.Statuses)
	}
	if sum.Shortfalls != 1 {
		t.Errorf("Shortfalls = %d, want 1 (Honey BBQ)", sum.Shortfalls)
	}
	if snaps.runID.String() != sum.RunID || snaps.total != 50 {
		t.Errorf("snapshot = %s/%d, want %s/50", snaps.runID, snaps.total, sum.RunID)
	}
	if got := testutil.ToFloat64(m.AllocationLines.WithLabelValues("Partial")); got != 1 {
		t.Errorf("partial lines metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Runs.WithLabelValues(JobAllocate, "ok")); got != 1 {
		t.Errorf("runs metric = %v, want 1", got)
	}

	if !strings.Contains(note.text, "единиц: 50") || note.doc == nil || !strings.HasSuffix(note.doc.Name, ".xlsx") {
		t.Errorf("notification = %q, %+v", note.text, note.doc)
	}
	wb, err := sheets.Open(sum.ReportFile)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer func() { _ = wb.Close() }()
	for _, name := range []string{sheets.SheetAnalyzed, sheets.SheetAllocation, sheets.SheetRemaining, sheets.SheetNeeds} {
		if idx, _ := wb.File().GetSheetIndex(name); idx < 0 {
			t.Errorf("report has no sheet %q", name)
		}
	}

	last, ok := p.LastRun()
	if !ok || last.RunID != sum.RunID {
		t.Errorf("LastRun = %+v, %v", last, ok)
	}
}

func TestPlanner_SkippedLineLoggedOnce(t *testing.T) {
	rows := append(reportRows(), demand.ReportRow{
		SKU: "GHOST", ProductName: "Unknown", UnitsT90: 30, SalesT90: decimal.NewFromInt(300), RecommendedQty: 6,
	})
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	sum, err := New(&fakeSource{report: rows}, testOptions(), log).Run(context.Background(), JobAllocate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Warnings != 1 {
		t.Errorf("Warnings = %d, want 1", sum.Warnings)
	}
	if n := strings.Count(buf.String(), `"sku":"GHOST"`); n != 1 {
		t.Errorf("skipped line logged %d times, want 1:\n%s", n, buf.String())
	}
}

func TestPlanner_FatalSources(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		src  *fakeSource
		want error
	}{
		{"inventory", &fakeSource{report: reportRows(), invErr: boom}, ErrInventorySourceUnavailable},
		{"catalog", &fakeSource{report: reportRows(), catErr: boom}, ErrCatalogSourceUnavailable},
		{"demand", &fakeSource{reportEr: boom}, ErrDemandSourceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			opts := testOptions()
			opts.Metrics = m
			p := New(tt.src, opts, nil)

			_, err := p.Run(context.Background(), JobAll)
			if !errors.Is(err, tt.want) || !errors.Is(err, boom) {
				t.Errorf("error = %v, want %v wrapping boom", err, tt.want)
			}
			last, _ := p.LastRun()
			if last.Error == "" {
				t.Error("last run should record the error")
			}
			if got := testutil.ToFloat64(m.Runs.WithLabelValues(JobAll, "error")); got != 1 {
				t.Errorf("error runs metric = %v, want 1", got)
			}
		})
	}
}

type fakeFetcher struct{ rows []demand.ReportRow }

func (f fakeFetcher) FetchPlanning(context.Context) ([]demand.ReportRow, error) { return f.rows, nil }

func TestPlanner_FetchedReportIsStored(t *testing.T) {
	src := &fakeSource{}
	opts := testOptions()
	opts.Fetcher = fakeFetcher{rows: reportRows()}

	sum, err := New(src, opts, nil).Run(context.Background(), JobAnalyze)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.replaced) != 3 {
		t.Errorf("stored rows = %d, want 3", len(src.replaced))
	}
	if sum.DemandLines != 2 || sum.Allocated != 0 {
		t.Errorf("analyze-only summary = %+v", sum)
	}
}

type recordingWriter struct{ written map[string]reconcile.WriteStatus }

func (w *recordingWriter) WriteOutcome(_ context.Context, sku string, _ reconcile.SearchStatus, st reconcile.WriteStatus, _ string) (bool, error) {
	if sku == "GONE" {
		return false, nil
	}
	w.written[sku] = st
	return true, nil
}

func TestPlanner_RunReconcile(t *testing.T) {
	tables := reconcile.NewTables()
	tables.AddBreakdown("OLD-1", reconcile.Part{ComponentID: "H1", Qty: 1})
	tables.AddBreakdown("OLD-1", reconcile.Part{ComponentID: "C2", Qty: 1})
	tables.AddBreakdown("GONE", reconcile.Part{ComponentID: "C9", Qty: 1})
	tables.Remaps["H1"] = "C1"
	tables.Remaps["C2"] = "C2"
	tables.Remaps["C9"] = "C9"
	wr := &recordingWriter{written: map[string]reconcile.WriteStatus{}}

	src := &fakeSource{rec: &ReconcileInput{
		Index: []reconcile.IndexRow{
			{BundleSKU: "N1", ComponentID: "C1", Qty: 1},
			{BundleSKU: "N1", ComponentID: "C2", Qty: 1},
		},
		Decomposer:  tables,
		Remapper:    tables,
		CurrentSKUs: []string{"N1"},
		Products:    []reconcile.LegacyProduct{{SKU: "OLD-1"}, {SKU: "N1"}, {SKU: "GONE"}},
		Writer:      wr,
	}}
	m := metrics.New()
	opts := testOptions()
	opts.Metrics = m

	sum, err := New(src, opts, nil).Run(context.Background(), JobReconcile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wr.written["OLD-1"] != reconcile.WriteReplace || wr.written["N1"] != reconcile.WriteCurrent {
		t.Errorf("written = %v", wr.written)
	}
	if sum.Reconciled[string(reconcile.StatusMatchFound)] != 1 || sum.Reconciled[string(reconcile.StatusNoMatch)] != 1 {
		t.Errorf("Reconciled = %v", sum.Reconciled)
	}
	want := reconcile.Summary{Processed: 3, Updated: 2, Skipped: 1, MatchFound: 1, SKUNotFound: 1}
	if sum.WriteBack == nil || *sum.WriteBack != want {
		t.Errorf("WriteBack = %+v, want %+v", sum.WriteBack, want)
	}
	if got := testutil.ToFloat64(m.ReconcileOutcomes.WithLabelValues(string(reconcile.StatusNewSKU))); got != 1 {
		t.Errorf("new sku metric = %v, want 1", got)
	}
}

func TestPlanner_UnknownJob(t *testing.T) {
	if _, err := New(&fakeSource{}, testOptions(), nil).Run(context.Background(), "deploy"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("error = %v, want ErrUnknownJob", err)
	}
}

func TestPlanner_LoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	note := &notifierRecorder{hook: cancel}
	opts := testOptions()
	opts.Notifier = note
	p := New(&fakeSource{report: reportRows()}, opts, nil)

	done := make(chan error, 1)
	go func() { done <- p.Loop(ctx, JobAnalyze, time.Hour) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Loop() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Loop did not stop after cancel")
	}
	if _, ok := p.LastRun(); !ok {
		t.Error("Loop should run the job immediately")
	}
}

func TestRunSummary_Text(t *testing.T) {
	s := RunSummary{
		RunID: "0123456789", Job: JobAll, Duration: 1500 * time.Millisecond,
		AnalyzedSKUs: 3, DemandLines: 2, Allocated: 2,
		Statuses:         map[string]int{"Yes": 1, "No": 1},
		FulfillableUnits: 45, Warnings: 1,
		Reconciled: map[string]int{"Match found": 2},
		WriteBack:  &reconcile.Summary{Updated: 2},
	}
	got := s.Text()
	for _, want := range []string{"Прогон all (01234567)", "No: 1, Yes: 1", "единиц: 45", "Пропущено с предупреждением: 1", "Сверка: Match found: 2", "Записано: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("Text() missing %q:\n%s", want, got)
		}
	}
}

func TestXLSXSource_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "planning.xlsx")
	writeWorkbook(t, input)

	opts := testOptions()
	opts.OutputDir = filepath.Join(dir, "out")
	p := New(NewXLSXSource(input), opts, nil)

	sum, err := p.Run(context.Background(), JobAll)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Allocated != 2 || sum.FulfillableUnits != 50 {
		t.Errorf("allocation summary = %+v", sum)
	}
	if _, err := os.Stat(sum.ReportFile); err != nil {
		t.Errorf("report file: %v", err)
	}

	wb, err := sheets.Open(input)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = wb.Close() }()
	rows, err := wb.File().GetRows(sheets.SheetLegacy)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) < 2 || len(rows[1]) < 5 || rows[1][3] != "Match found" || rows[1][4] != "N1" {
		t.Errorf("write-back rows = %v", rows)
	}
}

func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	book := map[string][][]interface{}{
		sheets.SheetReport: {
			{"sku", "product-name", "available", "units-shipped-t90", "sales-shipped-last-90-days", "Recommended ship-in quantity"},
			{"SGL-1", "Garlic Salt", 10, 90, 900, 45},
			{"COMBO-X", "BBQ Trio", 0, 45, 450, 10},
		},
		sheets.SheetBreakdown: {
			{"SKU", "Original Name", "Standardized Name", "UPC", "Quantity", "Type", "Weight_Oz"},
			{"SGL-1", "Garlic Salt", "Garlic Salt", "U1", 1, "Single", 4},
			{"COMBO-X", "BBQ Trio", "Garlic Salt", "U1", 1, "Combo", 4},
			{"COMBO-X", "BBQ Trio", "Honey BBQ", "U2", 1, "Combo", 3},
		},
		sheets.SheetInventory: {
			{"Item", "UPC", "Quantity"},
			{"Garlic Salt", "U1", 100},
			{"Honey BBQ", "U2", 5},
		},
		sheets.SheetBundles: {
			{"parent_sku", "child_name", "child_sku", "child_quantity"},
			{"N1", "Salt", "C1", 1},
			{"N1", "Pepper", "C2", 1},
			{"OLD-1", "Salt", "H1", 1},
			{"OLD-1", "Pepper", "C2", 1},
		},
		sheets.SheetCompiled: {
			{"sku", "Upc", "previous_upc", "previous_sku", "Name"},
			{"N1", "C1", "H1", "", "Salt"},
			{"N2", "C2", "C2", "", "Pepper"},
		},
		sheets.SheetLegacy: {
			{"SKU", "Item Name", "Status"},
			{"OLD-1", "Old duo", "Review"},
		},
	}
	first := true
	for name, rows := range book {
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatal(err)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
		for i, r := range rows {
			row := r
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}
