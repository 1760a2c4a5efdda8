package reports

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record — запись журнала заказанных отчётов.
type Record struct {
	ReportID   string
	ReportType string
	Status     string
	DocumentID string
	CreatedAt  time.Time
}

// Tracker — журнал заказанных отчётов для повторного использования.
type Tracker interface {
	// FindRecent — последний DONE-отчёт типа, созданный не раньше since.
	FindRecent(ctx context.Context, reportType string, since time.Time) (*Record, error)
	Log(ctx context.Context, r Record) error
	UpdateStatus(ctx context.Context, reportID, status, documentID string) error
}

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) FindRecent(ctx context.Context, reportType string, since time.Time) (*Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT report_id, report_type, status, document_id, created_at
		FROM report_tracker
		WHERE report_type = $1 AND status = 'DONE' AND document_id <> '' AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`, reportType, since)
	var rec Record
	if err := row.Scan(&rec.ReportID, &rec.ReportType, &rec.Status, &rec.DocumentID, &rec.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) Log(ctx context.Context, rec Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO report_tracker (report_id, report_type, status, document_id, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (report_id) DO NOTHING
	`, rec.ReportID, rec.ReportType, rec.Status, rec.DocumentID, rec.CreatedAt)
	return err
}

func (r *Repo) UpdateStatus(ctx context.Context, reportID, status, documentID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE report_tracker
		SET status = $2, document_id = COALESCE(NULLIF($3, ''), document_id)
		WHERE report_id = $1
	`, reportID, status, documentID)
	return err
}

// MemTracker — журнал в памяти процесса, когда базы нет.
type MemTracker struct {
	mu      sync.Mutex
	records []Record
}

func NewMemTracker() *MemTracker { return &MemTracker{} }

func (m *MemTracker) FindRecent(_ context.Context, reportType string, since time.Time) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		if rec.ReportType == reportType && rec.Status == StatusDone && rec.DocumentID != "" && !rec.CreatedAt.Before(since) {
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *MemTracker) Log(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *MemTracker) UpdateStatus(_ context.Context, reportID, status, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ReportID != reportID {
			continue
		}
		m.records[i].Status = status
		if documentID != "" {
			m.records[i].DocumentID = documentID
		}
	}
	return nil
}
