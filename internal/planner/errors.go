package planner

import "errors"

// Недоступный обязательный источник прерывает прогон.
var (
	ErrInventorySourceUnavailable = errors.New("inventory source unavailable")
	ErrCatalogSourceUnavailable   = errors.New("catalog source unavailable")
	ErrDemandSourceUnavailable    = errors.New("demand source unavailable")
	ErrUnknownJob                 = errors.New("unknown job")
)
