package reconcile

import "fmt"

// Matcher ищет действующий набор с точно таким же составом.
type Matcher struct {
	idx    *Index
	strict bool
}

// NewMatcher: при strict несколько совпадений дают ErrAmbiguousMatch,
// иначе выигрывает первый набор в порядке индекса.
func NewMatcher(idx *Index, strict bool) *Matcher {
	return &Matcher{idx: idx, strict: strict}
}

// FindMatchingSKU — первый набор индекса с тем же составом.
func FindMatchingSKU(target []Part, idx *Index) (string, error) {
	return NewMatcher(idx, false).Find(target)
}

// Find сравнивает наборы по множеству компонентов: число разных компонентов
// и количество каждого должны совпадать, порядок не важен.
func (m *Matcher) Find(target []Part) (string, error) {
	want := canonical(target)
	if len(want) == 0 {
		return "", ErrNoMatchingSKU
	}

	// кандидаты — наборы, содержащие любой компонент цели; берём самый короткий список
	var candidates []int
	for id := range want {
		list, ok := m.idx.byComponent[id]
		if !ok {
			return "", ErrNoMatchingSKU
		}
		if candidates == nil || len(list) < len(candidates) {
			candidates = list
		}
	}

	var matches []string
	for _, i := range candidates {
		b := m.idx.bundles[i]
		if len(b.parts) != len(want) {
			continue
		}
		if !sameParts(b.parts, want) {
			continue
		}
		if !m.strict {
			return b.sku, nil
		}
		matches = append(matches, b.sku)
	}

	switch len(matches) {
	case 0:
		return "", ErrNoMatchingSKU
	case 1:
		return matches[0], nil
	}
	return matches[0], fmt.Errorf("%w: %v", ErrAmbiguousMatch, matches)
}

func sameParts(have, want map[string]int) bool {
	for id, q := range want {
		if have[id] != q {
			return false
		}
	}
	return true
}
