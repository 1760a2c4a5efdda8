package demand

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// InfiniteCover — значение покрытия для SKU без продаж.
const InfiniteCover = 999

// Weights — параметры приоритизации.
type Weights struct {
	HighShare                  float64
	MediumShare                float64
	VelocityWeight             float64
	CoverageWeight             float64
	TrendWeight                float64
	OutOfStockMultiplier       float64
	CriticalCoverageDays       float64
	CriticalCoverageMultiplier float64
	LowCoverageDays            float64
	LowCoverageMultiplier      float64
}

func DefaultWeights() Weights {
	return Weights{
		HighShare:                  0.85,
		MediumShare:                0.95,
		VelocityWeight:             1,
		CoverageWeight:             1,
		TrendWeight:                1,
		OutOfStockMultiplier:       2,
		CriticalCoverageDays:       14,
		CriticalCoverageMultiplier: 1.5,
		LowCoverageDays:            30,
		LowCoverageMultiplier:      1.2,
	}
}

// DailyVelocity — продажи в штуках в день по окну t90.
func DailyVelocity(r ReportRow) float64 {
	return float64(r.UnitsT90) / 90
}

func WeeksOfCover(r ReportRow) float64 {
	v := DailyVelocity(r)
	if v <= 0 {
		return InfiniteCover
	}
	return float64(r.Available) / v / 7
}

var periods = []struct {
	name string
	days int64
	get  func(ReportRow) decimal.Decimal
}{
	{"t7", 7, func(r ReportRow) decimal.Decimal { return r.SalesT7 }},
	{"t30", 30, func(r ReportRow) decimal.Decimal { return r.SalesT30 }},
	{"t60", 60, func(r ReportRow) decimal.Decimal { return r.SalesT60 }},
	{"t90", 90, func(r ReportRow) decimal.Decimal { return r.SalesT90 }},
}

// BestDailyAverage — максимальная средняя выручка в день среди окон t7..t90.
// При равенстве побеждает более короткое окно; без продаж — t90 и ноль.
func BestDailyAverage(r ReportRow) (decimal.Decimal, string) {
	best, period := decimal.Zero, "t90"
	for _, p := range periods {
		avg := p.get(r).Div(decimal.NewFromInt(p.days))
		if avg.GreaterThan(best) {
			best, period = avg, p.name
		}
	}
	return best, period
}

// PeriodLabel — человекочитаемое окно для отчёта.
func PeriodLabel(period string) string {
	switch period {
	case "t7":
		return "7-Day"
	case "t30":
		return "30-Day"
	case "t60":
		return "60-Day"
	}
	return "90-Day"
}

// PriorityScore — (скорость + покрытие + тренд) * множитель статуса.
func PriorityScore(r ReportRow, w Weights) float64 {
	velocity := DailyVelocity(r)
	weeks := WeeksOfCover(r)

	coverageDays := float64(InfiniteCover)
	if velocity > 0 {
		coverageDays = float64(r.RecommendedQty+r.Available) / velocity
	}
	outOfStock := r.Available == 0 && velocity > 0

	salesPerDay, _ := r.SalesT90.Div(decimal.NewFromInt(90)).Float64()
	velocityScore := salesPerDay * w.VelocityWeight
	coverageScore := 1 / (weeks + 1) * w.CoverageWeight

	trendScore := 0.0
	if !r.SalesT90.IsZero() {
		t30, _ := r.SalesT30.Div(decimal.NewFromInt(30)).Float64()
		t90, _ := r.SalesT90.Div(decimal.NewFromInt(90)).Float64()
		trendScore = t30 / t90 * w.TrendWeight
	}

	multiplier := 1.0
	switch {
	case outOfStock:
		multiplier = w.OutOfStockMultiplier
	case coverageDays < w.CriticalCoverageDays:
		multiplier = w.CriticalCoverageMultiplier
	case coverageDays < w.LowCoverageDays:
		multiplier = w.LowCoverageMultiplier
	}
	return (velocityScore + coverageScore + trendScore) * multiplier
}

// SalesShare — вход классификации: SKU и его лучшая средняя выручка в день.
type SalesShare struct {
	SKU      string
	DailyAvg decimal.Decimal
}

// Classify присваивает класс приоритета по накопленной доле выручки:
// High пока доля <= high, Medium пока <= medium, дальше Low.
// Требует весь набор SKU; при нулевой суммарной выручке все SKU — Low.
func Classify(items []SalesShare, high, medium float64) map[string]PriorityClass {
	sorted := slices.Clone(items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DailyAvg.GreaterThan(sorted[j].DailyAvg)
	})

	total := decimal.Zero
	for _, it := range sorted {
		total = total.Add(it.DailyAvg)
	}

	out := make(map[string]PriorityClass, len(sorted))
	hi, med := decimal.NewFromFloat(high), decimal.NewFromFloat(medium)
	running := decimal.Zero
	for _, it := range sorted {
		if total.IsZero() {
			out[it.SKU] = PriorityLow
			continue
		}
		running = running.Add(it.DailyAvg)
		share := running.Div(total)
		switch {
		case share.LessThanOrEqual(hi):
			out[it.SKU] = PriorityHigh
		case share.LessThanOrEqual(med):
			out[it.SKU] = PriorityMedium
		default:
			out[it.SKU] = PriorityLow
		}
	}
	return out
}

// BundleType определяет формат упаковки по названию товара.
func BundleType(productName string) string {
	switch {
	case strings.Contains(productName, "Pack of 2") || strings.Contains(productName, "2 Bottles"):
		return "2-Pack"
	case strings.Contains(productName, "Pack of 3") || strings.Contains(productName, "3 Bottles"):
		return "3-Pack"
	case strings.Contains(productName, "Pack of 4") || strings.Contains(productName, "4 Bottles"):
		return "4-Pack"
	}
	return "Single"
}

// Analyze фильтрует снятые с продажи SKU, считает метрики и присваивает
// ранг (по убыванию score, начиная с 1) и класс приоритета.
func Analyze(rows []ReportRow, discontinued []string, w Weights) []Analyzed {
	skip := make(map[string]struct{}, len(discontinued))
	for _, s := range discontinued {
		skip[strings.TrimSpace(s)] = struct{}{}
	}

	out := make([]Analyzed, 0, len(rows))
	shares := make([]SalesShare, 0, len(rows))
	for _, r := range rows {
		if _, ok := skip[r.SKU]; ok || r.SKU == "" {
			continue
		}
		best, period := BestDailyAverage(r)
		a := Analyzed{
			ReportRow:     r,
			BundleType:    BundleType(r.ProductName),
			DailyVelocity: DailyVelocity(r),
			WeeksOfCover:  WeeksOfCover(r),
			BestDailyAvg:  best,
			BestPeriod:    period,
			PriorityScore: PriorityScore(r, w),
		}
		a.CoverageAtReco = InfiniteCover
		if a.DailyVelocity > 0 {
			a.CoverageAtReco = math.Round(float64(r.RecommendedQty+r.Available) / a.DailyVelocity)
		}
		out = append(out, a)
		shares = append(shares, SalesShare{SKU: r.SKU, DailyAvg: best})
	}

	classes := Classify(shares, w.HighShare, w.MediumShare)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriorityScore > out[j].PriorityScore
	})
	for i := range out {
		out[i].PriorityRank = i + 1
		out[i].PriorityClass = classes[out[i].SKU]
	}
	return out
}

// ScheduledBySKU суммирует количества отгрузок в заданном статусе.
func ScheduledBySKU(shipments []Shipment, status string) map[string]int {
	out := make(map[string]int)
	for _, s := range shipments {
		if s.SKU == "" || !strings.EqualFold(strings.TrimSpace(s.Status), status) {
			continue
		}
		out[s.SKU] += s.Qty
	}
	return out
}

// BuildLines превращает проанализированный отчёт в строки спроса.
// Строки без рекомендованного количества в распределение не попадают.
func BuildLines(analyzed []Analyzed, scheduled map[string]int) []Line {
	out := make([]Line, 0, len(analyzed))
	for _, a := range analyzed {
		if a.RecommendedQty <= 0 {
			continue
		}
		avg, _ := a.BestDailyAvg.Float64()
		out = append(out, Line{
			SKU:              a.SKU,
			ProductName:      a.ProductName,
			RecommendedQty:   a.RecommendedQty,
			ScheduledQty:     scheduled[a.SKU],
			PriorityClass:    a.PriorityClass,
			PriorityRank:     a.PriorityRank,
			DailyAvgSales:    avg,
			DailyVelocity:    a.DailyVelocity,
			CurrentAvailable: a.Available,
		})
	}
	return out
}
