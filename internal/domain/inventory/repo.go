package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) ListBalances(ctx context.Context) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT component_upc, qty
		FROM balances
		ORDER BY component_upc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var it Row
		if err := rows.Scan(&it.ComponentID, &it.Qty); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Load — снимок остатков на начало прогона.
func (r *Repo) Load(ctx context.Context) (*Snapshot, error) {
	rows, err := r.ListBalances(ctx)
	if err != nil {
		return nil, err
	}
	return FromRows(rows), nil
}

// SetBalance перезаписывает остаток компонента (загрузка из складского отчёта).
func (r *Repo) SetBalance(ctx context.Context, upc string, qty int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO balances (component_upc, qty, updated_at)
		VALUES ($1, GREATEST($2, 0), now())
		ON CONFLICT (component_upc)
		DO UPDATE SET qty = EXCLUDED.qty, updated_at = now()
	`, upc, qty)
	return err
}

// SaveSnapshot сохраняет остатки после распределения одной транзакцией.
func (r *Repo) SaveSnapshot(ctx context.Context, runID uuid.UUID, s *Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, row := range s.Rows() {
		batch.Queue(`
			INSERT INTO inventory_snapshots (run_id, component_upc, qty)
			VALUES ($1,$2,$3)
		`, runID, row.ComponentID, row.Qty)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LatestSnapshot возвращает последний сохранённый снимок (nil, если снимков нет).
func (r *Repo) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	var runID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT run_id FROM inventory_snapshots
		ORDER BY created_at DESC LIMIT 1
	`).Scan(&runID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT component_upc, qty FROM inventory_snapshots WHERE run_id = $1
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s := NewSnapshot()
	for rows.Next() {
		var id string
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, err
		}
		s.Set(id, qty)
	}
	return s, rows.Err()
}
