package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

var (
	ErrReportTimeout = errors.New("report generation timed out")
	ErrReportFailed  = errors.New("report generation failed")

	errNotReady = errors.New("report not ready")
)

// StatusGetter — источник статуса отчёта (Client или подмена в тестах).
type StatusGetter interface {
	GetReport(ctx context.Context, reportID string) (Report, error)
}

// Poller опрашивает статус отчёта с постоянным интервалом,
// не больше maxAttempts раз.
type Poller struct {
	api         StatusGetter
	interval    time.Duration
	maxAttempts uint64
	onPoll      func(status string)
	log         *slog.Logger
}

func NewPoller(api StatusGetter, interval time.Duration, maxAttempts uint64, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxAttempts == 0 {
		maxAttempts = 20
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Poller{api: api, interval: interval, maxAttempts: maxAttempts, log: log}
}

// OnPoll задаёт обработчик каждого полученного статуса (метрики).
func (p *Poller) OnPoll(fn func(status string)) { p.onPoll = fn }

// Wait ждёт DONE. CANCELLED и FATAL завершают ожидание сразу,
// исчерпание попыток даёт ErrReportTimeout.
func (p *Poller) Wait(ctx context.Context, reportID string) (Report, error) {
	attempt := uint64(0)
	b := retry.WithMaxRetries(p.maxAttempts-1, retry.NewConstant(p.interval))
	rep, err := retry.DoValue(ctx, b, func(ctx context.Context) (Report, error) {
		attempt++
		r, err := p.api.GetReport(ctx, reportID)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Temporary() {
				p.log.Warn("report status request failed", "report_id", reportID, "attempt", attempt, "err", err)
				return Report{}, retry.RetryableError(errNotReady)
			}
			return Report{}, err
		}
		if p.onPoll != nil {
			p.onPoll(r.ProcessingStatus)
		}
		p.log.Debug("report status", "report_id", reportID, "attempt", attempt, "status", r.ProcessingStatus)
		switch r.ProcessingStatus {
		case StatusDone:
			return r, nil
		case StatusCancelled, StatusFatal:
			return Report{}, fmt.Errorf("%w: %s is %s", ErrReportFailed, reportID, r.ProcessingStatus)
		}
		return Report{}, retry.RetryableError(errNotReady)
	})
	if errors.Is(err, errNotReady) {
		return Report{}, fmt.Errorf("%w: %s after %d attempts", ErrReportTimeout, reportID, attempt)
	}
	return rep, err
}
