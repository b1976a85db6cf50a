// Package storage defines the warehouse Store interface and the backend
// registry. Backends register themselves from init() (see the mssql,
// postgres and sqlite subpackages); importing internal/storage/all pulls in
// every backend.
package storage

import (
	"context"
	"fmt"
	"sync"

	"dropsync/internal/model"
)

// Table names the relational tables the job touches.
type Table string

const (
	TableSales      Table = "sales"
	TableProducts   Table = "products"
	TableCategories Table = "categories"
	TableAttributes Table = "attributes"

	// TableSiteIDs is the read-only lookup mapping customer references to
	// site ids. It is never truncated by the job.
	TableSiteIDs Table = "site_ids"
)

// Targets lists the four tables replaced on every run, in wipe order.
func Targets() []Table {
	return []Table{TableSales, TableProducts, TableCategories, TableAttributes}
}

// ValidTarget reports whether t is one of the replaceable tables. Backends
// use it to reject table names that did not come from this package.
func ValidTarget(t Table) bool {
	switch t {
	case TableSales, TableProducts, TableCategories, TableAttributes:
		return true
	}
	return false
}

// Config selects and configures a backend.
type Config struct {
	Kind string // e.g. "sqlserver", "postgres", "sqlite"
	DSN  string
}

// Store is the warehouse access surface for one run.
//
// Transaction semantics every backend must honor:
//   - DeleteAll and each Insert* call is its own transaction: commit once per
//     call, roll the whole call back on any error. There is no cross-table
//     or cross-call atomicity.
//   - InsertSales suppresses rows whose (orderId, productId, siteId) triple
//     already exists, probing inside the insert transaction so duplicates
//     within one batch are caught too.
type Store interface {
	// Close releases the backend's resources. Call once at run end.
	Close()

	// EnsureTables idempotently creates any missing target tables plus the
	// site_ids lookup.
	EnsureTables(ctx context.Context) error

	// DeleteAll empties a target table and returns the number of rows
	// removed. An already-empty table returns 0 without erroring and
	// without issuing a delete.
	DeleteAll(ctx context.Context, table Table) (int64, error)

	// SiteID resolves a customer reference via the site_ids lookup.
	// A missing mapping returns (0, nil): zero is the valid-but-unknown
	// sentinel, not an error.
	SiteID(ctx context.Context, customerReference string) (int64, error)

	InsertSales(ctx context.Context, rows []model.SalesRow) (int64, error)
	InsertProducts(ctx context.Context, rows []model.ProductRow) (int64, error)
	InsertCategories(ctx context.Context, rows []model.CategoryRow) (int64, error)
	InsertAttributes(ctx context.Context, rows []model.AttributeRow) (int64, error)
}

// ---- backend factories ----

type factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "sqlserver").
//
// Panics:
//   - If kind is empty, f is nil, or kind is already registered. Registering
//     twice would make backend selection ambiguous, so it fails fast.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Open constructs a Store using the registered backend factory for cfg.Kind.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
