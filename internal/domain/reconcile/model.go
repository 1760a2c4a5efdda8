package reconcile

import "errors"

var (
	ErrNoMatchingSKU  = errors.New("no matching sku")
	ErrAmbiguousMatch = errors.New("ambiguous sku match")
	ErrDecomposition  = errors.New("decomposition failed")
	ErrTranslation    = errors.New("translation failed")
)

// Part — компонент набора и его количество.
type Part struct {
	ComponentID string
	Qty         int
}

// IndexRow — строка разложения действующего набора (bundle_breakdown / PVPV_Export).
type IndexRow struct {
	BundleSKU   string
	ComponentID string
	Qty         int
}

// LegacyProduct — снятый с продажи товар, отмеченный для проверки.
type LegacyProduct struct {
	SKU      string
	ItemName string
}

type SearchStatus string

const (
	StatusMatchFound  SearchStatus = "Match found"
	StatusNoMatch     SearchStatus = "No match found"
	StatusNoChildSKUs SearchStatus = "No child SKUs found"
	StatusNewSKU      SearchStatus = "New SKU"
	StatusError       SearchStatus = "Error"
)

// WriteStatus — значение колонки Status во внешнем хранилище.
type WriteStatus string

const (
	WriteReplace WriteStatus = "Replace"
	WriteCreate  WriteStatus = "Create"
	WriteCurrent WriteStatus = "Current"
)

// WriteStatusFor — что записать обратно для результата поиска.
// Для Error запись не выполняется.
func WriteStatusFor(s SearchStatus) (WriteStatus, bool) {
	switch s {
	case StatusMatchFound:
		return WriteReplace, true
	case StatusNoMatch:
		return WriteCreate, true
	case StatusNoChildSKUs, StatusNewSKU:
		return WriteCurrent, true
	}
	return "", false
}

// Outcome — результат сверки одного товара.
type Outcome struct {
	LegacySKU  string
	ItemName   string
	Status     SearchStatus
	MatchedSKU string
	Translated []Part
	Err        error
}

// Summary — итог записи результатов во внешнее хранилище.
type Summary struct {
	Processed   int
	Updated     int
	Skipped     int
	Errors      int
	MatchFound  int
	SKUNotFound int
}
