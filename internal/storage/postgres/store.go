// Package postgres implements storage.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dropsync/internal/model"
	"dropsync/internal/storage"
)

func init() {
	storage.Register("postgres", New)
}

// Store implements storage.Store for PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool and validates connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS sales (
		order_id TEXT NOT NULL,
		reference TEXT,
		seller_id BIGINT,
		customer_reference TEXT,
		site_id BIGINT NOT NULL,
		company_name TEXT,
		purchased_at TEXT,
		updated_at TEXT,
		created_at TEXT,
		shipped_at_max TEXT,
		status TEXT,
		offer_id BIGINT,
		product_id TEXT,
		unit_sales_price DOUBLE PRECISION,
		shipping_cost DOUBLE PRECISION,
		commission_amount DOUBLE PRECISION,
		commission_rate DOUBLE PRECISION,
		promised_at_min TEXT,
		promised_at_max TEXT,
		parcel_number TEXT,
		carrier_name TEXT,
		tracking_url TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id TEXT NOT NULL,
		gtin TEXT,
		title TEXT,
		description TEXT,
		brand TEXT,
		image1 TEXT, image2 TEXT, image3 TEXT,
		image4 TEXT, image5 TEXT, image6 TEXT,
		created_at TEXT,
		updated_at TEXT,
		category TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		category_id1 TEXT NOT NULL,
		label1 TEXT,
		category_id2 TEXT NOT NULL,
		label2 TEXT,
		category_id3 TEXT NOT NULL,
		label3 TEXT,
		is_active BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attributes (
		product_id TEXT NOT NULL,
		code TEXT,
		label TEXT,
		value TEXT,
		updated_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS site_ids (
		customer_reference TEXT PRIMARY KEY,
		site_id BIGINT NOT NULL
	)`,
}

// EnsureTables creates any missing tables. Idempotent.
func (s *Store) EnsureTables(ctx context.Context) error {
	for _, stmt := range createStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure tables: %w", err)
		}
	}
	return nil
}

// DeleteAll empties a target table, returning the removed row count. An
// empty table short-circuits to 0 without issuing a delete.
func (s *Store) DeleteAll(ctx context.Context, table storage.Table) (int64, error) {
	if !storage.ValidTarget(table) {
		return 0, fmt.Errorf("postgres: not a target table: %s", table)
	}

	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+string(table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count %s: %w", table, err)
	}
	if count == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin delete %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM `+string(table))
	if err != nil {
		return 0, fmt.Errorf("postgres: delete %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit delete %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// SiteID resolves a customer reference; a missing mapping is (0, nil).
func (s *Store) SiteID(ctx context.Context, customerReference string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT site_id FROM `+string(storage.TableSiteIDs)+` WHERE customer_reference = $1`,
		customerReference,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: site lookup: %w", err)
	}
	return id, nil
}

// InsertSales inserts sales rows in one transaction, probing for an existing
// (order_id, product_id, site_id) triple before each insert.
func (s *Store) InsertSales(ctx context.Context, rows []model.SalesRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	insertSQL := insertStatement(storage.TableSales, storage.SalesColumns)
	existsSQL := `SELECT 1 FROM sales WHERE order_id = $1 AND product_id = $2 AND site_id = $3`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin insert sales: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var inserted int64
	for _, r := range rows {
		var one int
		err := tx.QueryRow(ctx, existsSQL, r.OrderID, r.ProductID, r.SiteID).Scan(&one)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, pgx.ErrNoRows):
			return 0, fmt.Errorf("postgres: sales dedupe probe: %w", err)
		}

		if _, err := tx.Exec(ctx, insertSQL, storage.SalesArgs(r)...); err != nil {
			return 0, fmt.Errorf("postgres: insert sales: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit sales: %w", err)
	}
	return inserted, nil
}

// InsertProducts inserts product rows in one transaction.
func (s *Store) InsertProducts(ctx context.Context, rows []model.ProductRow) (int64, error) {
	return s.insertBatch(ctx, storage.TableProducts, storage.ProductColumns, len(rows), func(i int) []any {
		return storage.ProductArgs(rows[i])
	})
}

// InsertCategories inserts category rows in one transaction.
func (s *Store) InsertCategories(ctx context.Context, rows []model.CategoryRow) (int64, error) {
	return s.insertBatch(ctx, storage.TableCategories, storage.CategoryColumns, len(rows), func(i int) []any {
		return storage.CategoryArgs(rows[i])
	})
}

// InsertAttributes inserts attribute rows in one transaction.
func (s *Store) InsertAttributes(ctx context.Context, rows []model.AttributeRow) (int64, error) {
	return s.insertBatch(ctx, storage.TableAttributes, storage.AttributeColumns, len(rows), func(i int) []any {
		return storage.AttributeArgs(rows[i])
	})
}

func (s *Store) insertBatch(ctx context.Context, table storage.Table, columns []string, n int, args func(i int) []any) (int64, error) {
	if n == 0 {
		return 0, nil
	}

	stmt := insertStatement(table, columns)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin insert %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := 0; i < n; i++ {
		if _, err := tx.Exec(ctx, stmt, args(i)...); err != nil {
			return 0, fmt.Errorf("postgres: insert %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit %s: %w", table, err)
	}
	return int64(n), nil
}

func insertStatement(table storage.Table, columns []string) string {
	marks := make([]string, len(columns))
	for i := range columns {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(marks, ", "))
}
