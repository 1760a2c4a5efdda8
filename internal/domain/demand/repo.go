package demand

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// ListReport — строки последнего загруженного FBA-отчёта.
func (r *Repo) ListReport(ctx context.Context) ([]ReportRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sku, product_name, available,
		       units_t7, units_t30, units_t60, units_t90,
		       sales_t7::text, sales_t30::text, sales_t60::text, sales_t90::text,
		       recommended_qty, recommended_date
		FROM fba_report
		ORDER BY sku
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var it ReportRow
		var s7, s30, s60, s90 string
		if err := rows.Scan(&it.SKU, &it.ProductName, &it.Available,
			&it.UnitsT7, &it.UnitsT30, &it.UnitsT60, &it.UnitsT90,
			&s7, &s30, &s60, &s90,
			&it.RecommendedQty, &it.RecommendedDate); err != nil {
			return nil, err
		}
		for _, p := range []struct {
			src string
			dst *decimal.Decimal
		}{{s7, &it.SalesT7}, {s30, &it.SalesT30}, {s60, &it.SalesT60}, {s90, &it.SalesT90}} {
			d, err := decimal.NewFromString(p.src)
			if err != nil {
				return nil, err
			}
			*p.dst = d
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ReplaceReport заменяет содержимое fba_report свежими строками одной транзакцией.
func (r *Repo) ReplaceReport(ctx context.Context, items []ReportRow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `DELETE FROM fba_report`); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO fba_report (sku, product_name, available,
				units_t7, units_t30, units_t60, units_t90,
				sales_t7, sales_t30, sales_t60, sales_t90,
				recommended_qty, recommended_date)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			ON CONFLICT (sku) DO NOTHING
		`, it.SKU, it.ProductName, it.Available,
			it.UnitsT7, it.UnitsT30, it.UnitsT60, it.UnitsT90,
			it.SalesT7, it.SalesT30, it.SalesT60, it.SalesT90,
			it.RecommendedQty, it.RecommendedDate)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) ListShipments(ctx context.Context) ([]Shipment, error) {
	rows, err := r.pool.Query(ctx, `SELECT sku, status, qty FROM shipments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Shipment
	for rows.Next() {
		var s Shipment
		if err := rows.Scan(&s.SKU, &s.Status, &s.Qty); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
