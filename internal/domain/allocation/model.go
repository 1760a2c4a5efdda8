package allocation

import (
	"github.com/Spok95/stock-planner/internal/domain/catalog"
	"github.com/Spok95/stock-planner/internal/domain/demand"
	"github.com/Spok95/stock-planner/internal/domain/inventory"
)

type Status string

const (
	StatusYes     Status = "Yes"
	StatusPartial Status = "Partial"
	StatusNo      Status = "No"
)

type Risk string

const (
	RiskHigh   Risk = "High"
	RiskMedium Risk = "Medium"
	RiskLow    Risk = "Low"
)

// Params — настройки распределения.
type Params struct {
	SinglePackSize   int
	ComboPackSize    int
	MinThreshold     int
	YesRatio         float64
	LeadTimeDays     float64
	HighRiskDays     float64
	MediumRiskDays   float64
	InfiniteCoverage float64
	ComboPackagingOz float64
}

func DefaultParams() Params {
	return Params{
		SinglePackSize:   60,
		ComboPackSize:    8,
		MinThreshold:     10,
		YesRatio:         0.9,
		LeadTimeDays:     7,
		HighRiskDays:     0,
		MediumRiskDays:   14,
		InfiniteCoverage: 999,
		ComboPackagingOz: 0.43,
	}
}

// ComponentUsage — расход одного компонента строкой спроса.
type ComponentUsage struct {
	ComponentID     string
	Name            string
	QtyPerUnit      int
	Needed          int
	AvailableBefore int
	Used            int
}

// Result — итог распределения по одному SKU. После создания не меняется.
type Result struct {
	Line        demand.Line
	Type        catalog.Type
	AdjustedQty int
	Fulfillable int
	Status      Status
	Components  []ComponentUsage
	WeightOz    float64

	TotalAfterShipment int
	DaysOfCoverage     float64
	BackorderRisk      Risk
}

// Plan — результат прогона распределения.
type Plan struct {
	Results   []Result
	Remaining *inventory.Snapshot
	Warnings  []Warning
}

// StatusCounts — число строк по статусам выполнения.
func (p Plan) StatusCounts() map[Status]int {
	out := map[Status]int{StatusYes: 0, StatusPartial: 0, StatusNo: 0}
	for _, r := range p.Results {
		out[r.Status]++
	}
	return out
}

// FulfillableUnits — сумма выполнимых количеств.
func (p Plan) FulfillableUnits() int {
	n := 0
	for _, r := range p.Results {
		n += r.Fulfillable
	}
	return n
}
