package reconcile

import (
	"slices"
	"strings"
)

type bundle struct {
	sku   string
	parts map[string]int
}

// Index — разложение действующих наборов для поиска по точному составу.
// Строится один раз на сессию, дальше только читается.
type Index struct {
	bundles     []bundle
	bySKU       map[string]int
	byComponent map[string][]int
}

// BuildIndex группирует строки по SKU набора в порядке первого появления.
// Повторы компонента внутри набора суммируются.
func BuildIndex(rows []IndexRow) *Index {
	idx := &Index{
		bySKU:       make(map[string]int),
		byComponent: make(map[string][]int),
	}
	for _, r := range rows {
		sku := strings.TrimSpace(r.BundleSKU)
		comp := strings.TrimSpace(r.ComponentID)
		if sku == "" || comp == "" {
			continue
		}
		i, ok := idx.bySKU[sku]
		if !ok {
			i = len(idx.bundles)
			idx.bySKU[sku] = i
			idx.bundles = append(idx.bundles, bundle{sku: sku, parts: make(map[string]int)})
		}
		b := idx.bundles[i]
		if _, seen := b.parts[comp]; !seen {
			idx.byComponent[comp] = append(idx.byComponent[comp], i)
		}
		b.parts[comp] += r.Qty
	}
	// строки наборов могут идти вперемешку; кандидаты держим в порядке индекса
	for _, list := range idx.byComponent {
		slices.Sort(list)
	}
	return idx
}

func (idx *Index) Len() int { return len(idx.bundles) }

// Parts — канонический состав набора (nil, если SKU нет в индексе).
func (idx *Index) Parts(sku string) map[string]int {
	i, ok := idx.bySKU[sku]
	if !ok {
		return nil
	}
	return idx.bundles[i].parts
}

// canonical складывает количества по компоненту.
func canonical(parts []Part) map[string]int {
	out := make(map[string]int, len(parts))
	for _, p := range parts {
		id := strings.TrimSpace(p.ComponentID)
		if id == "" {
			continue
		}
		out[id] += p.Qty
	}
	return out
}
