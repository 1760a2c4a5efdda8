package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/stock-planner/internal/domain/demand"
)

// API — вызовы клиента, которые нужны Fetcher.
type API interface {
	StatusGetter
	CreateReport(ctx context.Context, reportType string) (string, error)
	GetDocument(ctx context.Context, documentID string) (Document, error)
	Download(ctx context.Context, d Document) ([]byte, error)
}

// Fetcher получает свежий отчёт планирования: берёт недавний готовый
// из журнала или заказывает новый и ждёт его.
type Fetcher struct {
	api     API
	tracker Tracker
	poller  *Poller
	maxAge  time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func NewFetcher(api API, tracker Tracker, poller *Poller, maxAge time.Duration, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{api: api, tracker: tracker, poller: poller, maxAge: maxAge, now: time.Now, log: log}
}

// Fetch возвращает сырое содержимое отчёта reportType.
func (f *Fetcher) Fetch(ctx context.Context, reportType string) ([]byte, error) {
	docID, err := f.documentID(ctx, reportType)
	if err != nil {
		return nil, err
	}
	doc, err := f.api.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	return f.api.Download(ctx, doc)
}

// FetchPlanning скачивает и разбирает отчёт планирования FBA.
func (f *Fetcher) FetchPlanning(ctx context.Context) ([]demand.ReportRow, error) {
	data, err := f.Fetch(ctx, TypeFBAPlanning)
	if err != nil {
		return nil, err
	}
	rows, err := ParseTSV(data)
	if err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return ReportRows(rows), nil
}

func (f *Fetcher) documentID(ctx context.Context, reportType string) (string, error) {
	if f.maxAge > 0 {
		rec, err := f.tracker.FindRecent(ctx, reportType, f.now().Add(-f.maxAge))
		if err != nil {
			return "", fmt.Errorf("report tracker: %w", err)
		}
		if rec != nil {
			f.log.Info("reusing recent report", "report_id", rec.ReportID, "created_at", rec.CreatedAt)
			return rec.DocumentID, nil
		}
	}

	id, err := f.api.CreateReport(ctx, reportType)
	if err != nil {
		return "", err
	}
	f.log.Info("report requested", "report_id", id, "report_type", reportType)
	if err := f.tracker.Log(ctx, Record{ReportID: id, ReportType: reportType, Status: StatusInQueue, CreatedAt: f.now()}); err != nil {
		return "", fmt.Errorf("report tracker: %w", err)
	}

	rep, err := f.poller.Wait(ctx, id)
	if err != nil {
		status := StatusFatal
		if ctx.Err() != nil {
			status = StatusCancelled
		}
		// статус в журнале обновляем даже при отменённом контексте
		_ = f.tracker.UpdateStatus(context.WithoutCancel(ctx), id, status, "")
		return "", err
	}
	if err := f.tracker.UpdateStatus(ctx, id, rep.ProcessingStatus, rep.ReportDocumentID); err != nil {
		return "", fmt.Errorf("report tracker: %w", err)
	}
	return rep.ReportDocumentID, nil
}
