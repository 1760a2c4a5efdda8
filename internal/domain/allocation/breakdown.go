package allocation

import (
	"github.com/Spok95/stock-planner/internal/domain/catalog"
	"github.com/Spok95/stock-planner/internal/domain/inventory"
)

// Request — запрошенное количество SKU для расчёта потребности.
type Request struct {
	SKU string
	Qty int
}

// ComponentNeed — строка листа потребности в компонентах.
type ComponentNeed struct {
	ComponentID string
	Name        string
	SingleNeed  int
	BundleNeed  int
	Available   int
	Shortfall   int // остаток минус потребность; отрицательное значение — нехватка
}

func (n ComponentNeed) TotalNeed() int { return n.SingleNeed + n.BundleNeed }

func (n ComponentNeed) CanFulfill() bool { return n.Shortfall >= 0 }

// NeedsBreakdown раскладывает запросы по компонентам без распределения:
// сколько нужно на одиночные SKU, сколько на наборы и хватает ли остатка.
// SKU без записи в каталоге пропускаются и возвращаются вторым значением.
func NeedsBreakdown(reqs []Request, cat *catalog.Catalog, inv *inventory.Snapshot) ([]ComponentNeed, []string) {
	var (
		out     []ComponentNeed
		missing []string
	)
	pos := make(map[string]int)
	at := func(id string, name string) *ComponentNeed {
		if i, ok := pos[id]; ok {
			return &out[i]
		}
		pos[id] = len(out)
		out = append(out, ComponentNeed{ComponentID: id, Name: name})
		return &out[len(out)-1]
	}

	for _, r := range reqs {
		if r.Qty <= 0 {
			continue
		}
		e, ok := cat.Get(r.SKU)
		if !ok {
			missing = append(missing, r.SKU)
			continue
		}
		for _, c := range e.Components {
			if c.ComponentID == "" {
				continue
			}
			n := at(c.ComponentID, componentName(c, cat))
			// одиночный SKU — одна единица компонента, как в распределении
			if e.Type != catalog.TypeCombo {
				n.SingleNeed += r.Qty
				break
			}
			n.BundleNeed += r.Qty * max(c.QtyPerUnit, 1)
		}
	}

	for i := range out {
		out[i].Available = inv.Get(out[i].ComponentID)
		out[i].Shortfall = out[i].Available - out[i].TotalNeed()
	}
	return out, missing
}

// RemainingRow — строка сводки остатков после распределения.
type RemainingRow struct {
	ComponentID string
	Name        string
	Initial     int
	Used        int
	Remaining   int
}

// RemainingSummary — остатки по компонентам, затронутым результатами, в порядке появления.
func RemainingSummary(p Plan, initial *inventory.Snapshot) []RemainingRow {
	var out []RemainingRow
	pos := make(map[string]int)
	for _, r := range p.Results {
		for _, c := range r.Components {
			i, ok := pos[c.ComponentID]
			if !ok {
				i = len(out)
				pos[c.ComponentID] = i
				out = append(out, RemainingRow{
					ComponentID: c.ComponentID,
					Name:        c.Name,
					Initial:     initial.Get(c.ComponentID),
					Remaining:   p.Remaining.Get(c.ComponentID),
				})
			}
			out[i].Used += c.Used
		}
	}
	return out
}
