// Package mssql implements storage.Store on SQL Server, the warehouse the
// job normally loads.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"dropsync/internal/model"
	"dropsync/internal/storage"
)

func init() {
	storage.Register("sqlserver", New)
}

// Store implements storage.Store for SQL Server.
type Store struct {
	db *sql.DB
}

// New opens a SQL Server connection and validates connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() { _ = s.db.Close() }

var createStatements = []string{
	`IF OBJECT_ID('sales', 'U') IS NULL
	CREATE TABLE sales (
		order_id NVARCHAR(64) NOT NULL,
		reference NVARCHAR(128),
		seller_id BIGINT,
		customer_reference NVARCHAR(128),
		site_id BIGINT NOT NULL,
		company_name NVARCHAR(256),
		purchased_at NVARCHAR(40),
		updated_at NVARCHAR(40),
		created_at NVARCHAR(40),
		shipped_at_max NVARCHAR(40),
		status NVARCHAR(40),
		offer_id BIGINT,
		product_id NVARCHAR(64),
		unit_sales_price FLOAT,
		shipping_cost FLOAT,
		commission_amount FLOAT,
		commission_rate FLOAT,
		promised_at_min NVARCHAR(40),
		promised_at_max NVARCHAR(40),
		parcel_number NVARCHAR(512),
		carrier_name NVARCHAR(512),
		tracking_url NVARCHAR(MAX)
	)`,
	`IF OBJECT_ID('products', 'U') IS NULL
	CREATE TABLE products (
		product_id NVARCHAR(64) NOT NULL,
		gtin NVARCHAR(64),
		title NVARCHAR(512),
		description NVARCHAR(MAX),
		brand NVARCHAR(256),
		image1 NVARCHAR(1024), image2 NVARCHAR(1024), image3 NVARCHAR(1024),
		image4 NVARCHAR(1024), image5 NVARCHAR(1024), image6 NVARCHAR(1024),
		created_at NVARCHAR(40),
		updated_at NVARCHAR(40),
		category NVARCHAR(64)
	)`,
	`IF OBJECT_ID('categories', 'U') IS NULL
	CREATE TABLE categories (
		category_id1 NVARCHAR(8) NOT NULL,
		label1 NVARCHAR(256),
		category_id2 NVARCHAR(8) NOT NULL,
		label2 NVARCHAR(256),
		category_id3 NVARCHAR(8) NOT NULL,
		label3 NVARCHAR(256),
		is_active BIT NOT NULL
	)`,
	`IF OBJECT_ID('attributes', 'U') IS NULL
	CREATE TABLE attributes (
		product_id NVARCHAR(64) NOT NULL,
		code NVARCHAR(128),
		label NVARCHAR(256),
		value NVARCHAR(MAX),
		updated_at NVARCHAR(40)
	)`,
	`IF OBJECT_ID('site_ids', 'U') IS NULL
	CREATE TABLE site_ids (
		customer_reference NVARCHAR(128) NOT NULL PRIMARY KEY,
		site_id BIGINT NOT NULL
	)`,
}

// EnsureTables creates any missing tables. Idempotent.
func (s *Store) EnsureTables(ctx context.Context) error {
	for _, stmt := range createStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mssql: ensure tables: %w", err)
		}
	}
	return nil
}

// DeleteAll empties a target table, returning the removed row count. An
// empty table short-circuits to 0 without issuing a delete.
func (s *Store) DeleteAll(ctx context.Context, table storage.Table) (int64, error) {
	if !storage.ValidTarget(table) {
		return 0, fmt.Errorf("mssql: not a target table: %s", table)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+string(table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("mssql: count %s: %w", table, err)
	}
	if count == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin delete %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM `+string(table))
	if err != nil {
		return 0, fmt.Errorf("mssql: delete %s: %w", table, err)
	}
	deleted, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit delete %s: %w", table, err)
	}
	return deleted, nil
}

// SiteID resolves a customer reference; a missing mapping is (0, nil).
func (s *Store) SiteID(ctx context.Context, customerReference string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT site_id FROM `+string(storage.TableSiteIDs)+` WHERE customer_reference = @p1`,
		customerReference,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("mssql: site lookup: %w", err)
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
	existsSQL := `SELECT 1 FROM sales WHERE order_id = @p1 AND product_id = @p2 AND site_id = @p3`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin insert sales: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var inserted int64
	for _, r := range rows {
		var one int
		err := tx.QueryRowContext(ctx, existsSQL, r.OrderID, r.ProductID, r.SiteID).Scan(&one)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return 0, fmt.Errorf("mssql: sales dedupe probe: %w", err)
		}

		if _, err := tx.ExecContext(ctx, insertSQL, storage.SalesArgs(r)...); err != nil {
			return 0, fmt.Errorf("mssql: insert sales: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit sales: %w", err)
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
		return 0, fmt.Errorf("mssql: begin insert %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := 0; i < n; i++ {
		if _, err := tx.ExecContext(ctx, stmt, args(i)...); err != nil {
			return 0, fmt.Errorf("mssql: insert %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit %s: %w", table, err)
	}
	return int64(n), nil
}

func insertStatement(table storage.Table, columns []string) string {
	marks := make([]string, len(columns))
	for i := range columns {
		marks[i] = fmt.Sprintf("@p%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(marks, ", "))
}
