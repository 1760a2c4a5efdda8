package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/stock-planner/internal/domain/allocation"
	"github.com/Spok95/stock-planner/internal/domain/catalog"
	"github.com/Spok95/stock-planner/internal/domain/demand"
	"github.com/Spok95/stock-planner/internal/domain/inventory"
	"github.com/Spok95/stock-planner/internal/domain/reconcile"
	"github.com/Spok95/stock-planner/internal/sheets"
)

// Source — входные данные прогона.
type Source interface {
	Catalog(ctx context.Context) (*catalog.Catalog, error)
	Inventory(ctx context.Context) (*inventory.Snapshot, error)
	Report(ctx context.Context) ([]demand.ReportRow, error)
	Shipments(ctx context.Context) ([]demand.Shipment, error)
	// Requests — внешние запросы для листа потребности; пусто — считаем по строкам спроса.
	Requests(ctx context.Context) ([]allocation.Request, error)
	Reconciliation(ctx context.Context) (*ReconcileInput, error)
}

// Session — источник, который открывается перед прогоном и сохраняется после.
type Session interface {
	Open() error
	Save() error
}

// ReportStore сохраняет строки отчёта, полученные из API.
type ReportStore interface {
	ReplaceReport(ctx context.Context, items []demand.ReportRow) error
}

// SnapshotStore сохраняет остатки после распределения.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, runID uuid.UUID, s *inventory.Snapshot) error
}

// ReconcileInput — всё, что нужно для сверки снятых SKU.
type ReconcileInput struct {
	Index       []reconcile.IndexRow
	Decomposer  reconcile.Decomposer
	Remapper    reconcile.Remapper
	CurrentSKUs []string
	Products    []reconcile.LegacyProduct
	Writer      reconcile.Writer
}

/* xlsx */

// XLSXSource читает листы рабочей книги; книга перечитывается на каждый прогон.
type XLSXSource struct {
	path string

	mu     sync.Mutex
	wb     *sheets.Workbook
	writer *sheets.LegacyWriter
	dirty  bool
}

func NewXLSXSource(path string) *XLSXSource { return &XLSXSource{path: path} }

func (s *XLSXSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wb != nil {
		_ = s.wb.Close()
	}
	wb, err := sheets.Open(s.path)
	if err != nil {
		s.wb = nil
		return err
	}
	s.wb, s.writer, s.dirty = wb, nil, false
	return nil
}

// Save сохраняет книгу, если сверка что-то в неё записала.
func (s *XLSXSource) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wb == nil || !s.dirty {
		return nil
	}
	if err := s.wb.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *XLSXSource) book() (*sheets.Workbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wb == nil {
		return nil, fmt.Errorf("workbook %s is not open", s.path)
	}
	return s.wb, nil
}

func (s *XLSXSource) Catalog(context.Context) (*catalog.Catalog, error) {
	wb, err := s.book()
	if err != nil {
		return nil, err
	}
	rows, err := wb.CatalogRows()
	if err != nil {
		return nil, err
	}
	comps, err := wb.Components()
	if err != nil && !errors.Is(err, sheets.ErrSheetMissing) {
		return nil, err
	}
	return catalog.FromRows(rows, comps), nil
}

func (s *XLSXSource) Inventory(context.Context) (*inventory.Snapshot, error) {
	wb, err := s.book()
	if err != nil {
		return nil, err
	}
	rows, err := wb.InventoryRows()
	if err != nil {
		return nil, err
	}
	return inventory.FromRows(rows), nil
}

func (s *XLSXSource) Report(context.Context) ([]demand.ReportRow, error) {
	wb, err := s.book()
	if err != nil {
		return nil, err
	}
	return wb.ReportRows()
}

func (s *XLSXSource) Shipments(context.Context) ([]demand.Shipment, error) {
	wb, err := s.book()
	if err != nil {
		return nil, err
	}
	return wb.Shipments()
}

func (s *XLSXSource) Requests(context.Context) ([]allocation.Request, error) {
	wb, err := s.book()
	if err != nil {
		return nil, err
	}
	reqs, err := wb.Requests()
	if errors.Is(err, sheets.ErrSheetMissing) {
		return nil, nil
	}
	return reqs, err
}

func (s *XLSXSource) Reconciliation(context.Context) (*ReconcileInput, error) {
	wb, err := s.book()
	if err != nil {
		return nil, err
	}
	bundles, err := wb.BundleRows()
	if err != nil {
		return nil, err
	}
	remaps, current, err := wb.Compiled()
	if err != nil {
		return nil, err
	}
	products, err := wb.LegacyProducts()
	if err != nil {
		return nil, err
	}
	tables := reconcile.NewTables()
	for _, b := range bundles {
		tables.AddBreakdown(b.BundleSKU, reconcile.Part{ComponentID: b.ComponentID, Qty: b.Qty})
	}
	for from, to := range remaps {
		tables.Remaps[from] = to
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		if s.writer, err = sheets.NewLegacyWriter(wb); err != nil {
			return nil, err
		}
	}
	return &ReconcileInput{
		Index:       bundles,
		Decomposer:  tables,
		Remapper:    tables,
		CurrentSKUs: current,
		Products:    products,
		Writer:      &markingWriter{w: s.writer, mark: func() { s.mu.Lock(); s.dirty = true; s.mu.Unlock() }},
	}, nil
}

// markingWriter помечает книгу изменённой после первой записи.
type markingWriter struct {
	w    reconcile.Writer
	mark func()
}

func (m *markingWriter) WriteOutcome(ctx context.Context, sku string, search reconcile.SearchStatus, status reconcile.WriteStatus, matched string) (bool, error) {
	found, err := m.w.WriteOutcome(ctx, sku, search, status, matched)
	if found && err == nil {
		m.mark()
	}
	return found, err
}

/* postgres */

// PGSource читает входные данные из базы.
type PGSource struct {
	catalog   *catalog.Repo
	inventory *inventory.Repo
	demand    *demand.Repo
	reconcile *reconcile.Repo
}

func NewPGSource(pool *pgxpool.Pool) *PGSource {
	return &PGSource{
		catalog:   catalog.NewRepo(pool),
		inventory: inventory.NewRepo(pool),
		demand:    demand.NewRepo(pool),
		reconcile: reconcile.NewRepo(pool),
	}
}

func (s *PGSource) Catalog(ctx context.Context) (*catalog.Catalog, error) { return s.catalog.Load(ctx) }

func (s *PGSource) Inventory(ctx context.Context) (*inventory.Snapshot, error) {
	return s.inventory.Load(ctx)
}

func (s *PGSource) Report(ctx context.Context) ([]demand.ReportRow, error) {
	return s.demand.ListReport(ctx)
}

func (s *PGSource) Shipments(ctx context.Context) ([]demand.Shipment, error) {
	return s.demand.ListShipments(ctx)
}

func (s *PGSource) Requests(context.Context) ([]allocation.Request, error) { return nil, nil }

func (s *PGSource) ReplaceReport(ctx context.Context, items []demand.ReportRow) error {
	return s.demand.ReplaceReport(ctx, items)
}

func (s *PGSource) SaveSnapshot(ctx context.Context, runID uuid.UUID, snap *inventory.Snapshot) error {
	return s.inventory.SaveSnapshot(ctx, runID, snap)
}

func (s *PGSource) Reconciliation(ctx context.Context) (*ReconcileInput, error) {
	idx, err := s.reconcile.ListIndexRows(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.catalog.ListCurrentSKUs(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.reconcile.ListForReview(ctx)
	if err != nil {
		return nil, err
	}
	return &ReconcileInput{
		Index:       idx,
		Decomposer:  s.reconcile,
		Remapper:    s.reconcile,
		CurrentSKUs: current,
		Products:    products,
		Writer:      s.reconcile,
	}, nil
}
