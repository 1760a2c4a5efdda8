package allocation

import "errors"

// Ошибки уровня строки: строка пропускается, прогон продолжается.
var (
	ErrCatalogEntryMissing  = errors.New("catalog entry missing")
	ErrEmptyBillOfMaterials = errors.New("empty bill of materials")
	ErrMissingComponentID   = errors.New("missing component id")
)

// Warning — пропущенная строка спроса.
type Warning struct {
	SKU string
	Err error
}

func (w Warning) Error() string { return w.SKU + ": " + w.Err.Error() }

func (w Warning) Unwrap() error { return w.Err }

// Kind — короткая метка для метрик.
func (w Warning) Kind() string {
	switch {
	case errors.Is(w.Err, ErrCatalogEntryMissing):
		return "catalog_entry_missing"
	case errors.Is(w.Err, ErrEmptyBillOfMaterials):
		return "empty_bom"
	case errors.Is(w.Err, ErrMissingComponentID):
		return "missing_component_id"
	}
	return "other"
}
