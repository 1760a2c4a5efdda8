package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Decomposer раскладывает снятый SKU на исторические компоненты.
type Decomposer interface {
	Decompose(ctx context.Context, legacySKU string) ([]Part, error)
}

// Remapper переводит исторический идентификатор компонента в текущий.
// ok=false — соответствия нет, компонент пропускается.
type Remapper interface {
	Remap(ctx context.Context, historicalID string) (current string, ok bool, err error)
}

// Workflow сверяет снятые товары с действующим каталогом наборов.
type Workflow struct {
	matcher *Matcher
	decomp  Decomposer
	remap   Remapper
	current map[string]struct{}
	log     *slog.Logger
}

// NewWorkflow: currentSKUs — SKU действующего каталога; такие товары не ищутся.
func NewWorkflow(m *Matcher, d Decomposer, r Remapper, currentSKUs []string, log *slog.Logger) *Workflow {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	cur := make(map[string]struct{}, len(currentSKUs))
	for _, s := range currentSKUs {
		cur[s] = struct{}{}
	}
	return &Workflow{matcher: m, decomp: d, remap: r, current: cur, log: log}
}

// Run обрабатывает все товары; ошибка одной строки не прерывает пакет.
func (w *Workflow) Run(ctx context.Context, products []LegacyProduct) ([]Outcome, error) {
	out := make([]Outcome, 0, len(products))
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		o := w.one(ctx, p)
		if o.Err != nil && o.Status == StatusError {
			w.log.Warn("legacy sku not reconciled", "sku", p.SKU, "err", o.Err)
		} else {
			w.log.Debug("legacy sku reconciled", "sku", p.SKU, "status", o.Status, "matched", o.MatchedSKU)
		}
		out = append(out, o)
	}
	return out, nil
}

func (w *Workflow) one(ctx context.Context, p LegacyProduct) Outcome {
	o := Outcome{LegacySKU: p.SKU, ItemName: p.ItemName}

	if _, ok := w.current[p.SKU]; ok {
		o.Status = StatusNewSKU
		return o
	}

	translated, err := w.translate(ctx, p.SKU)
	if err != nil {
		o.Status = StatusError
		o.Err = err
		return o
	}
	o.Translated = translated
	if len(translated) == 0 {
		o.Status = StatusNoChildSKUs
		return o
	}

	sku, err := w.matcher.Find(translated)
	switch {
	case err == nil:
		o.Status, o.MatchedSKU = StatusMatchFound, sku
	case errors.Is(err, ErrNoMatchingSKU):
		o.Status = StatusNoMatch
		o.Err = err
	default:
		// неоднозначность в строгом режиме
		o.Status = StatusError
		o.Err = err
	}
	return o
}

// translate раскладывает SKU и переводит компоненты в текущие UPC.
// Компоненты без соответствия пропускаются.
func (w *Workflow) translate(ctx context.Context, sku string) ([]Part, error) {
	parts, err := w.decomp.Decompose(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecomposition, sku, err)
	}
	out := make([]Part, 0, len(parts))
	for _, p := range parts {
		cur, ok, err := w.remap.Remap(ctx, p.ComponentID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTranslation, p.ComponentID, err)
		}
		if !ok {
			w.log.Debug("component has no remap", "sku", sku, "component", p.ComponentID)
			continue
		}
		out = append(out, Part{ComponentID: cur, Qty: p.Qty})
	}
	return out, nil
}

// Tables — разложение и таблица перекодировки, загруженные целиком в память.
type Tables struct {
	Breakdown map[string][]Part
	Remaps    map[string]string
}

func NewTables() *Tables {
	return &Tables{Breakdown: make(map[string][]Part), Remaps: make(map[string]string)}
}

func (t *Tables) AddBreakdown(legacySKU string, p Part) {
	t.Breakdown[legacySKU] = append(t.Breakdown[legacySKU], p)
}

func (t *Tables) Decompose(_ context.Context, legacySKU string) ([]Part, error) {
	return t.Breakdown[legacySKU], nil
}

func (t *Tables) Remap(_ context.Context, id string) (string, bool, error) {
	cur, ok := t.Remaps[id]
	return cur, ok && cur != "", nil
}

// Writer записывает результат сверки. found=false — SKU нет во внешнем хранилище.
type Writer interface {
	WriteOutcome(ctx context.Context, legacySKU string, search SearchStatus, status WriteStatus, matchedSKU string) (found bool, err error)
}

// WriteBack записывает результаты и считает итог.
func WriteBack(ctx context.Context, wr Writer, outcomes []Outcome, log *slog.Logger) (Summary, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := Summary{Processed: len(outcomes)}
	for _, o := range outcomes {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		status, ok := WriteStatusFor(o.Status)
		if !ok {
			s.Errors++
			continue
		}
		found, err := wr.WriteOutcome(ctx, o.LegacySKU, o.Status, status, o.MatchedSKU)
		if err != nil {
			log.Error("write back failed", "sku", o.LegacySKU, "err", err)
			s.Errors++
			continue
		}
		if !found {
			log.Warn("legacy sku not found in store", "sku", o.LegacySKU)
			s.SKUNotFound++
			s.Skipped++
			continue
		}
		s.Updated++
		if o.Status == StatusMatchFound {
			s.MatchFound++
		}
	}
	return s, nil
}

// Counts — число результатов по статусам поиска.
func Counts(outcomes []Outcome) map[SearchStatus]int {
	out := make(map[SearchStatus]int)
	for _, o := range outcomes {
		out[o.Status]++
	}
	return out
}
