package reconcile

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// ListIndexRows — разложение действующих наборов в порядке вставки.
func (r *Repo) ListIndexRows(ctx context.Context) ([]IndexRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT bundle_sku, component_id, quantity
		FROM bundle_breakdown
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IndexRow
	for rows.Next() {
		var it IndexRow
		if err := rows.Scan(&it.BundleSKU, &it.ComponentID, &it.Qty); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListForReview — товары, отмеченные для сверки.
func (r *Repo) ListForReview(ctx context.Context) ([]LegacyProduct, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sku, product_name
		FROM legacy_products
		WHERE needs_review = TRUE
		ORDER BY sku
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LegacyProduct
	for rows.Next() {
		var p LegacyProduct
		if err := rows.Scan(&p.SKU, &p.ItemName); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Decompose(ctx context.Context, legacySKU string) ([]Part, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT component_sku, quantity
		FROM legacy_breakdown
		WHERE legacy_sku = $1
		ORDER BY id
	`, legacySKU)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Part
	for rows.Next() {
		var p Part
		if err := rows.Scan(&p.ComponentID, &p.Qty); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Remap(ctx context.Context, historicalID string) (string, bool, error) {
	var cur string
	err := r.pool.QueryRow(ctx, `
		SELECT current_upc FROM upc_remap WHERE previous_upc = $1
	`, historicalID).Scan(&cur)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return cur, cur != "", nil
}

func (r *Repo) WriteOutcome(ctx context.Context, legacySKU string, search SearchStatus, status WriteStatus, matchedSKU string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE legacy_products
		SET search_status = $2,
		    status = $3,
		    matched_sku = CASE WHEN $4 <> '' THEN $4 ELSE matched_sku END,
		    updated_at = now()
		WHERE sku = $1
	`, legacySKU, string(search), string(status), matchedSKU)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
