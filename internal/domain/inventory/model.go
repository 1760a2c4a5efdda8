package inventory

import (
	"fmt"
	"sort"
)

// Row — строка источника остатков.
type Row struct {
	ComponentID string
	Qty         int
}

// Snapshot — остатки компонентов на время одного прогона распределения.
// Значения никогда не бывают отрицательными.
type Snapshot struct {
	qty map[string]int
}

func NewSnapshot() *Snapshot {
	return &Snapshot{qty: make(map[string]int)}
}

// FromRows суммирует повторяющиеся UPC; отрицательные остатки считаются нулём.
func FromRows(rows []Row) *Snapshot {
	s := NewSnapshot()
	for _, r := range rows {
		if r.ComponentID == "" {
			continue
		}
		s.qty[r.ComponentID] += max(r.Qty, 0)
	}
	return s
}

func (s *Snapshot) Get(id string) int { return s.qty[id] }

func (s *Snapshot) Has(id string) bool {
	_, ok := s.qty[id]
	return ok
}

func (s *Snapshot) Set(id string, qty int) {
	s.qty[id] = max(qty, 0)
}

// Deduct списывает n единиц. Уход в минус запрещён.
func (s *Snapshot) Deduct(id string, n int) error {
	if n < 0 {
		return fmt.Errorf("deduct %s: negative amount %d", id, n)
	}
	cur := s.qty[id]
	if n > cur {
		return fmt.Errorf("deduct %s: need %d, have %d", id, n, cur)
	}
	s.qty[id] = cur - n
	return nil
}

func (s *Snapshot) Clone() *Snapshot {
	cp := NewSnapshot()
	for k, v := range s.qty {
		cp.qty[k] = v
	}
	return cp
}

// IDs — отсортированный список компонентов.
func (s *Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.qty))
	for k := range s.qty {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids
}

func (s *Snapshot) Len() int { return len(s.qty) }

func (s *Snapshot) Total() int {
	total := 0
	for _, v := range s.qty {
		total += v
	}
	return total
}

func (s *Snapshot) Rows() []Row {
	out := make([]Row, 0, len(s.qty))
	for _, id := range s.IDs() {
		out = append(out, Row{ComponentID: id, Qty: s.qty[id]})
	}
	return out
}
