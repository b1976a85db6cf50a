// Package sqlite implements storage.Store on SQLite. It doubles as the
// test vehicle for the replace semantics: an in-memory database exercises
// the count-then-delete and dedupe-insert paths for real.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"dropsync/internal/model"
	"dropsync/internal/storage"
)

func init() {
	storage.Register("sqlite", New)
}

// Store implements storage.Store for SQLite.
type Store struct {
	db *sql.DB
}

// New opens a SQLite database and validates connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// One connection: modernc's in-memory databases are per-connection, and
	// the job is sequential anyway.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() { _ = s.db.Close() }

var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS sales (
		order_id TEXT NOT NULL,
		reference TEXT,
		seller_id INTEGER,
		customer_reference TEXT,
		site_id INTEGER NOT NULL,
		company_name TEXT,
		purchased_at TEXT,
		updated_at TEXT,
		created_at TEXT,
		shipped_at_max TEXT,
		status TEXT,
		offer_id INTEGER,
		product_id TEXT,
		unit_sales_price REAL,
		shipping_cost REAL,
		commission_amount REAL,
		commission_rate REAL,
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
		is_active INTEGER NOT NULL
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
		site_id INTEGER NOT NULL
	)`,
}

// EnsureTables creates any missing tables. Idempotent.
func (s *Store) EnsureTables(ctx context.Context) error {
	for _, stmt := range createStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: ensure tables: %w", err)
		}
	}
	return nil
}

// DeleteAll empties a target table, returning the removed row count. An
// empty table short-circuits to 0 without issuing a delete.
func (s *Store) DeleteAll(ctx context.Context, table storage.Table) (int64, error) {
	if !storage.ValidTarget(table) {
		return 0, fmt.Errorf("sqlite: not a target table: %s", table)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+string(table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: count %s: %w", table, err)
	}
	if count == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin delete %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM `+string(table))
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete %s: %w", table, err)
	}
	deleted, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit delete %s: %w", table, err)
	}
	return deleted, nil
}

// SiteID resolves a customer reference; a missing mapping is (0, nil).
func (s *Store) SiteID(ctx context.Context, customerReference string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT site_id FROM `+string(storage.TableSiteIDs)+` WHERE customer_reference = ?`,
		customerReference,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: site lookup: %w", err)
	}
	return id, nil
}

// InsertSales inserts sales rows in one transaction, probing for an existing
// (order_id, product_id, site_id) triple before each insert. The probe runs
// inside the transaction, so duplicates within the batch are suppressed too.
func (s *Store) InsertSales(ctx context.Context, rows []model.SalesRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	insertSQL := insertStatement(storage.TableSales, storage.SalesColumns)
	existsSQL := `SELECT 1 FROM sales WHERE order_id = ? AND product_id = ? AND site_id = ?`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin insert sales: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var inserted int64
	for _, r := range rows {
		var one int
		err := tx.QueryRowContext(ctx, existsSQL, r.OrderID, r.ProductID, r.SiteID).Scan(&one)
		switch {
		case err == nil:
			continue // duplicate triple, skip
		case !errors.Is(err, sql.ErrNoRows):
			return 0, fmt.Errorf("sqlite: sales dedupe probe: %w", err)
		}

		if _, err := tx.ExecContext(ctx, insertSQL, storage.SalesArgs(r)...); err != nil {
			return 0, fmt.Errorf("sqlite: insert sales: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit sales: %w", err)
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin insert %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := 0; i < n; i++ {
		if _, err := tx.ExecContext(ctx, stmt, args(i)...); err != nil {
			return 0, fmt.Errorf("sqlite: insert %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit %s: %w", table, err)
	}
	return int64(n), nil
}

func insertStatement(table storage.Table, columns []string) string {
	marks := strings.TrimRight(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), marks)
}
