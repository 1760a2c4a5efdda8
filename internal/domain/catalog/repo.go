package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

/* Components */

func (r *Repo) ListComponents(ctx context.Context) ([]Component, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT upc, name, COALESCE(weight_oz, 0)
		FROM components
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Component
	for rows.Next() {
		var c Component
		if err := rows.Scan(&c.ID, &c.Name, &c.WeightOz); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) GetComponent(ctx context.Context, upc string) (*Component, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT upc, name, COALESCE(weight_oz, 0)
		FROM components WHERE upc = $1
	`, upc)
	var c Component
	if err := row.Scan(&c.ID, &c.Name, &c.WeightOz); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repo) UpsertComponent(ctx context.Context, c Component) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO components (upc, name, weight_oz) VALUES ($1,$2,$3)
		ON CONFLICT (upc) DO UPDATE SET name = EXCLUDED.name, weight_oz = EXCLUDED.weight_oz
	`, c.ID, c.Name, c.WeightOz)
	return err
}

/* SKU breakdown */

// ListRows возвращает разложение всех SKU в порядке вставки.
func (r *Repo) ListRows(ctx context.Context) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.sku, s.product_name, s.type, sc.component_upc, COALESCE(c.name, ''),
		       sc.quantity, COALESCE(c.weight_oz, 0)
		FROM skus s
		JOIN sku_components sc ON sc.sku = s.sku
		LEFT JOIN components c ON c.upc = sc.component_upc
		ORDER BY s.sku, sc.position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var it Row
		if err := rows.Scan(&it.SKU, &it.ProductName, &it.Type, &it.ComponentID, &it.Component,
			&it.Quantity, &it.WeightOz); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Load собирает каталог целиком.
func (r *Repo) Load(ctx context.Context) (*Catalog, error) {
	comps, err := r.ListComponents(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.ListRows(ctx)
	if err != nil {
		return nil, err
	}
	return FromRows(rows, comps), nil
}

// ListCurrentSKUs — SKU актуального каталога (для проверки «New SKU» при сверке).
func (r *Repo) ListCurrentSKUs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT sku FROM skus WHERE active = TRUE ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
