package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/stock-planner/internal/domain/allocation"
	"github.com/Spok95/stock-planner/internal/domain/demand"
	"github.com/Spok95/stock-planner/internal/domain/reconcile"
	"github.com/Spok95/stock-planner/internal/infra/logger"
	"github.com/Spok95/stock-planner/internal/infra/metrics"
	"github.com/Spok95/stock-planner/internal/notify"
	"github.com/Spok95/stock-planner/internal/sheets"
)

const (
	JobAnalyze   = "analyze"
	JobAllocate  = "allocate"
	JobReconcile = "reconcile"
	JobAll       = "all"
)

func ParseJob(s string) (string, error) {
	switch s {
	case JobAnalyze, JobAllocate, JobReconcile, JobAll:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownJob, s)
}

// ReportFetcher получает строки отчёта планирования из API маркетплейса.
type ReportFetcher interface {
	FetchPlanning(ctx context.Context) ([]demand.ReportRow, error)
}

// Notifier доставляет сводку прогона.
type Notifier interface {
	Notify(ctx context.Context, text string, doc *notify.Document) error
}

type Options struct {
	Allocation      allocation.Params
	Weights         demand.Weights
	Discontinued    []string
	ScheduledStatus string
	FailOnAmbiguous bool
	// OutputDir — каталог для файлов отчёта; пусто — файл не сохраняется.
	OutputDir string

	Fetcher   ReportFetcher
	Snapshots SnapshotStore
	Notifier  Notifier
	Metrics   *metrics.Metrics
}

type Planner struct {
	src   Source
	opts  Options
	alloc *allocation.Allocator
	log   *slog.Logger
	now   func() time.Time

	runMu sync.Mutex // прогоны не пересекаются: расписание и команды из чата
	mu    sync.RWMutex
	last  *RunSummary
}

func New(src Source, opts Options, log *slog.Logger) *Planner {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Planner{
		src:   src,
		opts:  opts,
		alloc: allocation.New(opts.Allocation, log),
		log:   log,
		now:   time.Now,
	}
}

// LastRun — сводка последнего завершённого прогона.
func (p *Planner) LastRun() (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return RunSummary{}, false
	}
	return *p.last, true
}

// run — состояние одного прогона.
type run struct {
	id        uuid.UUID
	log       *slog.Logger
	report    *sheets.Report
	sum       *RunSummary
	lines     []demand.Line
	scheduled map[string]int
}

// Run выполняет задачу один раз.
func (p *Planner) Run(ctx context.Context, job string) (RunSummary, error) {
	if _, err := ParseJob(job); err != nil {
		return RunSummary{}, err
	}
	p.runMu.Lock()
	defer p.runMu.Unlock()

	started := p.now()
	id := uuid.New()
	sum := RunSummary{RunID: id.String(), Job: job, StartedAt: started}
	log := logger.ForRun(p.log, sum.RunID, job)
	log.Info("run started")

	err := p.execute(ctx, job, id, log, &sum)

	sum.Duration = p.now().Sub(started)
	if err != nil {
		sum.Error = err.Error()
		log.Error("run failed", "err", err)
	} else {
		log.Info("run finished", "duration", sum.Duration, "report", sum.ReportFile)
	}
	if p.opts.Metrics != nil {
		p.opts.Metrics.ObserveRun(job, started, err)
	}

	p.mu.Lock()
	last := sum
	p.last = &last
	p.mu.Unlock()
	return sum, err
}

func (p *Planner) execute(ctx context.Context, job string, id uuid.UUID, log *slog.Logger, sum *RunSummary) error {
	if s, ok := p.src.(Session); ok {
		if err := s.Open(); err != nil {
			return fmt.Errorf("open source: %w", err)
		}
	}
	rep, err := sheets.NewReport()
	if err != nil {
		return err
	}
	defer func() { _ = rep.Close() }()

	r := &run{id: id, log: log, report: rep, sum: sum}

	if job == JobAnalyze || job == JobAllocate || job == JobAll {
		if err := p.analyze(ctx, r); err != nil {
			return err
		}
	}
	if job == JobAllocate || job == JobAll {
		if err := p.allocate(ctx, r); err != nil {
			return err
		}
	}
	if job == JobReconcile || job == JobAll {
		if err := p.reconcile(ctx, r); err != nil {
			return err
		}
		if s, ok := p.src.(Session); ok {
			if err := s.Save(); err != nil {
				return err
			}
		}
	}

	data, err := rep.Bytes()
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%s.xlsx", job, p.now().Format("20060102_150405"), id.String()[:8])
	if p.opts.OutputDir != "" {
		if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(p.opts.OutputDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		sum.ReportFile = path
	}
	if p.opts.Notifier != nil {
		doc := &notify.Document{Name: name, Bytes: data, Caption: "Отчёт " + job}
		if err := p.opts.Notifier.Notify(ctx, sum.Text(), doc); err != nil {
			// отчёт уже сохранён, сбой доставки прогон не роняет
			log.Error("notify failed", "err", err)
		}
	}
	return nil
}

func (p *Planner) reportRows(ctx context.Context, log *slog.Logger) ([]demand.ReportRow, error) {
	if p.opts.Fetcher == nil {
		return p.src.Report(ctx)
	}
	rows, err := p.opts.Fetcher.FetchPlanning(ctx)
	if err != nil {
		return nil, err
	}
	if store, ok := p.src.(ReportStore); ok {
		if err := store.ReplaceReport(ctx, rows); err != nil {
			return nil, fmt.Errorf("store report: %w", err)
		}
	}
	log.Info("planning report fetched", "rows", len(rows))
	return rows, nil
}

func (p *Planner) analyze(ctx context.Context, r *run) error {
	rows, err := p.reportRows(ctx, r.log)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDemandSourceUnavailable, err)
	}
	ships, err := p.src.Shipments(ctx)
	if err != nil {
		return fmt.Errorf("%w: shipments: %w", ErrDemandSourceUnavailable, err)
	}
	analyzed := demand.Analyze(rows, p.opts.Discontinued, p.opts.Weights)
	r.scheduled = demand.ScheduledBySKU(ships, p.opts.ScheduledStatus)
	r.lines = demand.BuildLines(analyzed, r.scheduled)

	r.sum.AnalyzedSKUs = len(analyzed)
	r.sum.DemandLines = len(r.lines)
	r.log.Info("demand analyzed", "skus", len(analyzed), "lines", len(r.lines), "scheduled_skus", len(r.scheduled))
	return r.report.WriteAnalyzed(analyzed)
}

func (p *Planner) allocate(ctx context.Context, r *run) error {
	cat, err := p.src.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCatalogSourceUnavailable, err)
	}
	inv, err := p.src.Inventory(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInventorySourceUnavailable, err)
	}

	ranked := allocation.Rank(r.lines)
	plan := p.alloc.Allocate(ranked, cat, inv, r.scheduled)

	r.sum.Allocated = len(plan.Results)
	r.sum.FulfillableUnits = plan.FulfillableUnits()
	r.sum.Warnings = len(plan.Warnings)
	r.sum.Statuses = make(map[string]int)
	for st, n := range plan.StatusCounts() {
		r.sum.Statuses[string(st)] = n
	}
	if m := p.opts.Metrics; m != nil {
		for st, n := range plan.StatusCounts() {
			m.AllocationLines.WithLabelValues(string(st)).Add(float64(n))
		}
		m.AllocatedUnits.Add(float64(plan.FulfillableUnits()))
		for _, w := range plan.Warnings {
			m.Warnings.WithLabelValues(w.Kind()).Inc()
		}
	}

	if err := r.report.WriteAllocation(plan); err != nil {
		return err
	}
	if err := r.report.WriteRemaining(allocation.RemainingSummary(plan, inv)); err != nil {
		return err
	}

	reqs, err := p.src.Requests(ctx)
	if err != nil {
		return fmt.Errorf("%w: requests: %w", ErrDemandSourceUnavailable, err)
	}
	if len(reqs) == 0 {
		for _, l := range ranked {
			reqs = append(reqs, allocation.Request{SKU: l.SKU, Qty: l.AdjustedQty()})
		}
	}
	needs, missing := allocation.NeedsBreakdown(reqs, cat, inv)
	for _, n := range needs {
		if !n.CanFulfill() {
			r.sum.Shortfalls++
		}
	}
	if len(missing) > 0 {
		r.log.Warn("requests without catalog entry", "skus", missing)
	}
	if err := r.report.WriteNeeds(needs); err != nil {
		return err
	}

	if p.opts.Snapshots != nil {
		if err := p.opts.Snapshots.SaveSnapshot(ctx, r.id, plan.Remaining); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	r.log.Info("allocation done", "lines", len(plan.Results), "units", plan.FulfillableUnits(), "warnings", len(plan.Warnings))
	return nil
}

func (p *Planner) reconcile(ctx context.Context, r *run) error {
	in, err := p.src.Reconciliation(ctx)
	if err != nil {
		return fmt.Errorf("reconcile sources: %w", err)
	}
	m := reconcile.NewMatcher(reconcile.BuildIndex(in.Index), p.opts.FailOnAmbiguous)
	wf := reconcile.NewWorkflow(m, in.Decomposer, in.Remapper, in.CurrentSKUs, r.log)

	outcomes, err := wf.Run(ctx, in.Products)
	if err != nil {
		return err
	}
	ws, err := reconcile.WriteBack(ctx, in.Writer, outcomes, r.log)
	if err != nil {
		return err
	}

	r.sum.WriteBack = &ws
	r.sum.Reconciled = make(map[string]int)
	for st, n := range reconcile.Counts(outcomes) {
		r.sum.Reconciled[string(st)] = n
		if p.opts.Metrics != nil {
			p.opts.Metrics.ReconcileOutcomes.WithLabelValues(string(st)).Add(float64(n))
		}
	}
	r.log.Info("reconciliation done", "products", len(in.Products), "updated", ws.Updated, "errors", ws.Errors)
	return r.report.WriteReconcile(outcomes)
}

// Loop выполняет задачу сразу и затем каждые interval до отмены ctx.
// Ошибка прогона логируется, цикл продолжается.
func (p *Planner) Loop(ctx context.Context, job string, interval time.Duration) error {
	if _, err := ParseJob(job); err != nil {
		return err
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := p.Run(ctx, job); err != nil && errors.Is(err, context.Canceled) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
