package catalog

import "strings"

type Type string

const (
	TypeSingle Type = "single"
	TypeCombo  Type = "combo"
)

// ParseType нормализует тип из таблицы/БД. Пустое или неизвестное значение
// определяется по числу компонентов.
func ParseType(s string, components int) Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return TypeSingle
	case "combo", "bundle":
		return TypeCombo
	}
	if components > 1 {
		return TypeCombo
	}
	return TypeSingle
}

// Component — минимальная складская единица (флакон приправы), ключ — UPC.
type Component struct {
	ID       string
	Name     string
	WeightOz float64
}

type BOMLine struct {
	ComponentID string
	Name        string
	QtyPerUnit  int
}

type Entry struct {
	SKU         string
	ProductName string
	Type        Type
	Components  []BOMLine
	WeightOz    float64 // вес single-позиции; для combo считается по компонентам
}

// Catalog — SKU -> запись плюс справочник компонентов.
type Catalog struct {
	entries    map[string]*Entry
	components map[string]Component
}

func New() *Catalog {
	return &Catalog{
		entries:    make(map[string]*Entry),
		components: make(map[string]Component),
	}
}

// Row — одна строка разложения SKU (Standardized_Breakdown / sku_components).
type Row struct {
	SKU         string
	ProductName string
	Type        string
	ComponentID string
	Component   string
	Quantity    int
	WeightOz    float64
}

// FromRows собирает каталог из строк разложения. Строки одного SKU
// склеиваются в порядке появления.
func FromRows(rows []Row, components []Component) *Catalog {
	c := New()
	for _, comp := range components {
		c.AddComponent(comp)
	}
	rawTypes := make(map[string]string)
	for _, r := range rows {
		sku := strings.TrimSpace(r.SKU)
		if sku == "" {
			continue
		}
		e, ok := c.entries[sku]
		if !ok {
			e = &Entry{SKU: sku, ProductName: r.ProductName, WeightOz: r.WeightOz}
			c.entries[sku] = e
			rawTypes[sku] = r.Type
		}
		qty := r.Quantity
		if qty < 1 {
			qty = 1
		}
		e.Components = append(e.Components, BOMLine{
			ComponentID: strings.TrimSpace(r.ComponentID),
			Name:        r.Component,
			QtyPerUnit:  qty,
		})
		if r.ComponentID != "" && r.WeightOz > 0 {
			if _, known := c.components[r.ComponentID]; !known {
				c.components[r.ComponentID] = Component{ID: r.ComponentID, Name: r.Component, WeightOz: r.WeightOz}
			}
		}
	}
	for sku, e := range c.entries {
		e.Type = ParseType(rawTypes[sku], len(e.Components))
	}
	return c
}

func (c *Catalog) Add(e Entry) {
	cp := e
	cp.Components = append([]BOMLine(nil), e.Components...)
	c.entries[e.SKU] = &cp
}

func (c *Catalog) AddComponent(comp Component) {
	if comp.ID == "" {
		return
	}
	c.components[comp.ID] = comp
}

func (c *Catalog) Get(sku string) (*Entry, bool) {
	e, ok := c.entries[sku]
	return e, ok
}

func (c *Catalog) Component(id string) (Component, bool) {
	comp, ok := c.components[id]
	return comp, ok
}

func (c *Catalog) Len() int { return len(c.entries) }

// ComponentName возвращает отображаемое имя компонента или сам UPC.
func (c *Catalog) ComponentName(id string) string {
	if comp, ok := c.components[id]; ok && comp.Name != "" {
		return comp.Name
	}
	return id
}
