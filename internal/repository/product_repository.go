package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/lib/pq"

	"tourcatalog/internal/model"
)

const productSchema = `
CREATE TABLE IF NOT EXISTS catalog_products (
	product_id    TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	slug          TEXT NOT NULL,
	base_price    NUMERIC(12,2),
	base_currency TEXT,
	all_prices    JSONB,
	photo_urls    TEXT[],
	location      TEXT,
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	last_run_id   TEXT NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// ProductRepository archives the products seen by each refresh run.
type ProductRepository struct {
	DB *sql.DB
}

func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, productSchema); err != nil {
		return errors.Wrap(err, "create catalog_products")
	}
	return nil
}

// SaveAll upserts products inside one transaction and tags them with runID.
func (r *ProductRepository) SaveAll(ctx context.Context, runID string, products []model.ProductSummary) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_products
		(product_id, title, slug, base_price, base_currency, all_prices, photo_urls, location, active, last_run_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, now())
		ON CONFLICT (product_id) DO UPDATE SET
			title = EXCLUDED.title,
			slug = EXCLUDED.slug,
			base_price = EXCLUDED.base_price,
			base_currency = EXCLUDED.base_currency,
			all_prices = EXCLUDED.all_prices,
			photo_urls = EXCLUDED.photo_urls,
			location = EXCLUDED.location,
			active = TRUE,
			last_run_id = EXCLUDED.last_run_id,
			updated_at = now()
	`)
	if err != nil {
		return errors.Wrap(err, "prepare upsert")
	}
	defer stmt.Close()

	for _, p := range products {
		prices, err := json.Marshal(p.AllPrices)
		if err != nil {
			return errors.Wrapf(err, "encode prices of %s", p.ID)
		}
		var price any
		if p.BasePrice.Valid {
			price = p.BasePrice.Decimal.String()
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Title, p.Slug, price, p.BaseCurrency, prices,
			pq.Array(photoURLs(p)), p.Location, runID); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// MarkMissing deactivates products that the given run did not see.
func (r *ProductRepository) MarkMissing(ctx context.Context, runID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE catalog_products
		SET active = FALSE, updated_at = now()
		WHERE active AND last_run_id <> $1
	`, runID)
	if err != nil {
		return 0, errors.Wrap(err, "mark missing products")
	}
	return res.RowsAffected()
}

// ListActiveIDs returns the ids of products not marked missing.
func (r *ProductRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT product_id FROM catalog_products WHERE active ORDER BY product_id`)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan product id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func photoURLs(p model.ProductSummary) []string {
	var urls []string
	if p.KeyPhoto != nil && p.KeyPhoto.OriginalURL != "" {
		urls = append(urls, p.KeyPhoto.OriginalURL)
	}
	for _, ph := range p.Photos {
		if ph.OriginalURL != "" {
			urls = append(urls, ph.OriginalURL)
		}
	}
	return urls
}
