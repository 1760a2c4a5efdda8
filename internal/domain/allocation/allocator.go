package allocation

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/Spok95/stock-planner/internal/domain/catalog"
	"github.com/Spok95/stock-planner/internal/domain/demand"
	"github.com/Spok95/stock-planner/internal/domain/inventory"
)

type Allocator struct {
	params Params
	log    *slog.Logger
}

func New(p Params, log *slog.Logger) *Allocator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Allocator{params: p, log: log}
}

// Allocate распределяет остатки по строкам спроса строго в переданном порядке.
// Исходный снимок не меняется: работа идёт на копии, она же возвращается как остаток.
// scheduled перекрывает ScheduledQty строки, если SKU в нём есть.
func (a *Allocator) Allocate(ranked []demand.Line, cat *catalog.Catalog, inv *inventory.Snapshot, scheduled map[string]int) Plan {
	remaining := inv.Clone()
	plan := Plan{Remaining: remaining}

	for _, line := range ranked {
		if q, ok := scheduled[line.SKU]; ok {
			line.ScheduledQty = q
		}

		entry, ok := cat.Get(line.SKU)
		if !ok {
			plan.Warnings = append(plan.Warnings, a.warn(line.SKU, ErrCatalogEntryMissing))
			continue
		}

		var (
			res Result
			err error
		)
		switch entry.Type {
		case catalog.TypeCombo:
			res, err = a.combo(line, entry, cat, remaining)
		default:
			res, err = a.single(line, entry, cat, remaining)
		}
		if err != nil {
			plan.Warnings = append(plan.Warnings, a.warn(line.SKU, err))
			continue
		}

		classify(&res, a.params)
		a.log.Debug("line allocated",
			"sku", line.SKU, "type", res.Type, "adjusted", res.AdjustedQty,
			"fulfillable", res.Fulfillable, "status", res.Status)
		plan.Results = append(plan.Results, res)
	}
	return plan
}

func (a *Allocator) warn(sku string, err error) Warning {
	a.log.Warn("demand line skipped", "sku", sku, "err", err)
	return Warning{SKU: sku, Err: err}
}

func (a *Allocator) single(line demand.Line, e *catalog.Entry, cat *catalog.Catalog, inv *inventory.Snapshot) (Result, error) {
	if len(e.Components) == 0 {
		return Result{}, ErrEmptyBillOfMaterials
	}
	c := e.Components[0]
	if c.ComponentID == "" {
		return Result{}, ErrMissingComponentID
	}

	adjusted := line.AdjustedQty()
	available := inv.Get(c.ComponentID)
	fulfillable := RoundToPack(min(adjusted, available), a.params.SinglePackSize, a.params.MinThreshold)

	if err := inv.Deduct(c.ComponentID, fulfillable); err != nil {
		return Result{}, fmt.Errorf("single %s: %w", e.SKU, err)
	}

	weight := e.WeightOz
	if weight == 0 {
		if comp, ok := cat.Component(c.ComponentID); ok {
			weight = comp.WeightOz
		}
	}

	return Result{
		Line:        line,
		Type:        catalog.TypeSingle,
		AdjustedQty: adjusted,
		Fulfillable: fulfillable,
		Status:      StatusFor(fulfillable, adjusted, a.params.YesRatio),
		Components: []ComponentUsage{{
			ComponentID:     c.ComponentID,
			Name:            componentName(c, cat),
			QtyPerUnit:      c.QtyPerUnit,
			Needed:          adjusted,
			AvailableBefore: available,
			Used:            fulfillable,
		}},
		WeightOz: weight,
	}, nil
}

func (a *Allocator) combo(line demand.Line, e *catalog.Entry, cat *catalog.Catalog, inv *inventory.Snapshot) (Result, error) {
	if len(e.Components) == 0 {
		return Result{}, ErrEmptyBillOfMaterials
	}
	for _, c := range e.Components {
		if c.ComponentID == "" {
			return Result{}, ErrMissingComponentID
		}
	}

	bom := mergeBOM(e.Components)
	adjusted := line.AdjustedQty()
	usage := make([]ComponentUsage, 0, len(bom))
	minFulfillable := math.MaxInt
	weight := 0.0
	for _, c := range bom {
		per := c.QtyPerUnit
		available := inv.Get(c.ComponentID)
		minFulfillable = min(minFulfillable, available/per)
		usage = append(usage, ComponentUsage{
			ComponentID:     c.ComponentID,
			Name:            componentName(c, cat),
			QtyPerUnit:      per,
			Needed:          adjusted * per,
			AvailableBefore: available,
		})
		if comp, ok := cat.Component(c.ComponentID); ok {
			weight += comp.WeightOz * float64(per)
		}
	}

	fulfillable := RoundToPack(min(minFulfillable, adjusted), a.params.ComboPackSize, a.params.MinThreshold)
	for i := range usage {
		usage[i].Used = fulfillable * usage[i].QtyPerUnit
		if err := inv.Deduct(usage[i].ComponentID, usage[i].Used); err != nil {
			return Result{}, fmt.Errorf("combo %s: %w", e.SKU, err)
		}
	}

	return Result{
		Line:        line,
		Type:        catalog.TypeCombo,
		AdjustedQty: adjusted,
		Fulfillable: fulfillable,
		Status:      StatusFor(fulfillable, adjusted, a.params.YesRatio),
		Components:  usage,
		WeightOz:    weight + a.params.ComboPackagingOz,
	}, nil
}

func componentName(c catalog.BOMLine, cat *catalog.Catalog) string {
	if c.Name != "" {
		return c.Name
	}
	return cat.ComponentName(c.ComponentID)
}

// mergeBOM складывает повторы одного компонента, сохраняя порядок первого появления.
func mergeBOM(lines []catalog.BOMLine) []catalog.BOMLine {
	out := make([]catalog.BOMLine, 0, len(lines))
	pos := make(map[string]int, len(lines))
	for _, l := range lines {
		qty := max(l.QtyPerUnit, 1)
		if i, ok := pos[l.ComponentID]; ok {
			out[i].QtyPerUnit += qty
			continue
		}
		pos[l.ComponentID] = len(out)
		l.QtyPerUnit = qty
		out = append(out, l)
	}
	return out
}
