package demand

import "github.com/shopspring/decimal"

type PriorityClass string

const (
	PriorityHigh   PriorityClass = "High"
	PriorityMedium PriorityClass = "Medium"
	PriorityLow    PriorityClass = "Low"
)

// Order — позиция класса в сортировке (High раньше Low). Неизвестный класс идёт последним.
func (p PriorityClass) Order() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

func ParsePriorityClass(s string) PriorityClass {
	switch s {
	case "High", "high", "HIGH":
		return PriorityHigh
	case "Medium", "medium", "MEDIUM":
		return PriorityMedium
	}
	return PriorityLow
}

// ReportRow — строка отчёта FBA-планирования (amz_fba_report / fba_report).
type ReportRow struct {
	SKU             string
	ProductName     string
	Available       int
	UnitsT7         int
	UnitsT30        int
	UnitsT60        int
	UnitsT90        int
	SalesT7         decimal.Decimal
	SalesT30        decimal.Decimal
	SalesT60        decimal.Decimal
	SalesT90        decimal.Decimal
	RecommendedQty  int
	RecommendedDate string
}

// Analyzed — строка отчёта после анализа продаж.
type Analyzed struct {
	ReportRow

	BundleType     string
	DailyVelocity  float64
	WeeksOfCover   float64
	BestDailyAvg   decimal.Decimal
	BestPeriod     string
	PriorityScore  float64
	PriorityRank   int
	PriorityClass  PriorityClass
	CoverageAtReco float64 // дней покрытия при рекомендованной поставке
}

// Line — строка спроса, поступающая в распределение.
type Line struct {
	SKU              string
	ProductName      string
	RecommendedQty   int
	ScheduledQty     int
	PriorityClass    PriorityClass
	PriorityRank     int
	DailyAvgSales    float64
	DailyVelocity    float64
	CurrentAvailable int
}

// AdjustedQty — рекомендованное количество за вычетом уже запланированного.
func (l Line) AdjustedQty() int {
	return max(0, l.RecommendedQty-l.ScheduledQty)
}

// Shipment — строка листа отгрузок на склад маркетплейса.
type Shipment struct {
	SKU    string
	Status string
	Qty    int
}
