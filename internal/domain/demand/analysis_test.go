package demand

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBestDailyAverage(t *testing.T) {
	tests := []struct {
		name       string
		row        ReportRow
		wantAvg    string
		wantPeriod string
	}{
		{"no sales", ReportRow{}, "0", "t90"},
		{"recent spike", ReportRow{SalesT7: dec("70"), SalesT30: dec("90"), SalesT90: dec("180")}, "10", "t7"},
		{"steady", ReportRow{SalesT7: dec("7"), SalesT30: dec("60"), SalesT60: dec("120"), SalesT90: dec("180")}, "2", "t30"},
		{"long window", ReportRow{SalesT90: dec("270")}, "3", "t90"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, period := BestDailyAverage(tt.row)
			if !avg.Equal(dec(tt.wantAvg)) {
				t.Errorf("avg = %s, want %s", avg, tt.wantAvg)
			}
			if period != tt.wantPeriod {
				t.Errorf("period = %s, want %s", period, tt.wantPeriod)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	items := []SalesShare{
		{SKU: "C", DailyAvg: dec("5")},
		{SKU: "A", DailyAvg: dec("80")},
		{SKU: "D", DailyAvg: dec("5")},
		{SKU: "B", DailyAvg: dec("10")},
	}
	got := Classify(items, 0.85, 0.95)
	want := map[string]PriorityClass{
		"A": PriorityHigh,   // 0.80
		"B": PriorityMedium, // 0.90
		"C": PriorityMedium, // 0.95
		"D": PriorityLow,    // 1.00
	}
	for sku, w := range want {
		if got[sku] != w {
			t.Errorf("%s = %s, want %s", sku, got[sku], w)
		}
	}
}

func TestClassify_ZeroSales(t *testing.T) {
	got := Classify([]SalesShare{{SKU: "A"}, {SKU: "B"}}, 0.85, 0.95)
	for sku, c := range got {
		if c != PriorityLow {
			t.Errorf("%s = %s, want Low", sku, c)
		}
	}
}

func TestPriorityScore(t *testing.T) {
	w := DefaultWeights()

	// 90 штук за 90 дней, 0 на складе: out of stock => множитель 2
	r := ReportRow{UnitsT90: 90, SalesT30: dec("300"), SalesT90: dec("900")}
	// velocity score 10, coverage 1/(0+1)=1, trend (10)/(10)=1
	if got, want := PriorityScore(r, w), 24.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("out of stock score = %v, want %v", got, want)
	}

	// 10 в наличии + 0 рекомендовано => 10 дней покрытия < 14 => 1.5
	r.Available = 10
	weeks := 10.0 / 1 / 7
	want := (10 + 1/(weeks+1) + 1) * 1.5
	if got := PriorityScore(r, w); math.Abs(got-want) > 1e-9 {
		t.Errorf("critical score = %v, want %v", got, want)
	}

	// без продаж: покрытие 999, тренд 0, множитель 1
	idle := ReportRow{Available: 5}
	if got, want := PriorityScore(idle, w), 1.0/(InfiniteCover+1); math.Abs(got-want) > 1e-12 {
		t.Errorf("idle score = %v, want %v", got, want)
	}
}

func TestWeeksOfCover(t *testing.T) {
	if got := WeeksOfCover(ReportRow{Available: 70, UnitsT90: 90}); got != 10 {
		t.Errorf("WeeksOfCover = %v, want 10", got)
	}
	if got := WeeksOfCover(ReportRow{Available: 70}); got != InfiniteCover {
		t.Errorf("WeeksOfCover without sales = %v, want %v", got, InfiniteCover)
	}
}

func TestBundleType(t *testing.T) {
	tests := map[string]string{
		"Garlic Salt, Pack of 2":  "2-Pack",
		"BBQ Rub 3 Bottles":       "3-Pack",
		"Variety Set - Pack of 4": "4-Pack",
		"Lemon Pepper 5.5oz":      "Single",
	}
	for name, want := range tests {
		if got := BundleType(name); got != want {
			t.Errorf("BundleType(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestAnalyze(t *testing.T) {
	rows := []ReportRow{
		{SKU: "SLOW", UnitsT90: 9, SalesT90: dec("90"), Available: 100},
		{SKU: "FAST", UnitsT90: 900, SalesT30: dec("2550"), SalesT90: dec("7650"), RecommendedQty: 120},
		{SKU: "MID", UnitsT90: 90, SalesT90: dec("1260"), Available: 100},
		{SKU: "OLD", UnitsT90: 900, SalesT90: dec("9000")},
	}

	got := Analyze(rows, []string{"OLD"}, DefaultWeights())

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (discontinued dropped)", len(got))
	}
	wantOrder := []string{"FAST", "MID", "SLOW"}
	for i, sku := range wantOrder {
		if got[i].SKU != sku || got[i].PriorityRank != i+1 {
			t.Errorf("pos %d = %s rank %d, want %s rank %d", i, got[i].SKU, got[i].PriorityRank, sku, i+1)
		}
	}
	// доли: FAST 85/100, MID 99/100, SLOW 100/100
	wantClass := []PriorityClass{PriorityHigh, PriorityLow, PriorityLow}
	for i, c := range wantClass {
		if got[i].PriorityClass != c {
			t.Errorf("%s class = %s, want %s", got[i].SKU, got[i].PriorityClass, c)
		}
	}
	if got[0].CoverageAtReco != 12 {
		t.Errorf("FAST coverage at recommended = %v, want 12", got[0].CoverageAtReco)
	}
	if got[2].BundleType != "Single" {
		t.Errorf("bundle type = %s, want Single", got[2].BundleType)
	}
}

func TestScheduledBySKU(t *testing.T) {
	got := ScheduledBySKU([]Shipment{
		{SKU: "A", Status: "Prep", Qty: 10},
		{SKU: "A", Status: "prep ", Qty: 5},
		{SKU: "A", Status: "Shipped", Qty: 100},
		{SKU: "B", Status: "Working", Qty: 3},
	}, "Prep")

	if got["A"] != 15 {
		t.Errorf("A = %d, want 15", got["A"])
	}
	if _, ok := got["B"]; ok {
		t.Error("B has no Prep shipments and should be absent")
	}
}

func TestBuildLines(t *testing.T) {
	analyzed := []Analyzed{
		{ReportRow: ReportRow{SKU: "A", RecommendedQty: 50, Available: 4}, PriorityRank: 1, PriorityClass: PriorityHigh, BestDailyAvg: dec("12.5")},
		{ReportRow: ReportRow{SKU: "B", RecommendedQty: 0}, PriorityRank: 2},
	}
	lines := BuildLines(analyzed, map[string]int{"A": 20})

	if len(lines) != 1 {
		t.Fatalf("len = %d, want 1", len(lines))
	}
	l := lines[0]
	if l.ScheduledQty != 20 || l.AdjustedQty() != 30 {
		t.Errorf("scheduled/adjusted = %d/%d, want 20/30", l.ScheduledQty, l.AdjustedQty())
	}
	if l.DailyAvgSales != 12.5 || l.CurrentAvailable != 4 {
		t.Errorf("line = %+v", l)
	}
}

func TestLine_AdjustedQty(t *testing.T) {
	if got := (Line{RecommendedQty: 10, ScheduledQty: 25}).AdjustedQty(); got != 0 {
		t.Errorf("AdjustedQty = %d, want 0", got)
	}
}
