// Package run orchestrates a full refresh: wipe the target tables, walk the
// order pages, flatten what comes back, and load the four tables.
package run

import (
	"context"
	"fmt"
	"time"

	"dropsync/internal/api"
	"dropsync/internal/flatten"
	"dropsync/internal/metrics"
	"dropsync/internal/model"
	"dropsync/internal/storage"
)

// Logger is the logging seam the runner writes progress to.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// OrderPager yields successive pages of orders. A false second return means
// the listing is exhausted (or unreachable; the pager logs that itself).
type OrderPager interface {
	Next(ctx context.Context) ([]api.Order, bool)
}

// Marketplace is the slice of the REST client the runner depends on.
type Marketplace interface {
	Token(ctx context.Context) (string, error)
	OrderPages(token string) OrderPager
	OrderDetail(ctx context.Context, token, orderID string) (api.Order, error)
	Product(ctx context.Context, token, productID string) (api.Product, error)
	Category(ctx context.Context, token, reference string) (api.Category, error)
}

// NewMarketplace adapts the concrete client to the Marketplace interface.
func NewMarketplace(c *api.Client) Marketplace { return clientAPI{c} }

type clientAPI struct{ c *api.Client }

func (a clientAPI) Token(ctx context.Context) (string, error) { return a.c.Token(ctx) }
func (a clientAPI) OrderPages(token string) OrderPager        { return a.c.OrderPages(token) }
func (a clientAPI) OrderDetail(ctx context.Context, token, orderID string) (api.Order, error) {
	return a.c.OrderDetail(ctx, token, orderID)
}
func (a clientAPI) Product(ctx context.Context, token, productID string) (api.Product, error) {
	return a.c.Product(ctx, token, productID)
}
func (a clientAPI) Category(ctx context.Context, token, reference string) (api.Category, error) {
	return a.c.Category(ctx, token, reference)
}

// Totals summarizes one run.
type Totals struct {
	Deleted  map[storage.Table]int64
	Inserted map[storage.Table]int64
	Orders   int
	Products int
}

func newTotals() Totals {
	return Totals{
		Deleted:  make(map[storage.Table]int64),
		Inserted: make(map[storage.Table]int64),
	}
}

// Runner executes one full refresh. Store and API must be set; Log and Now
// default to a nop logger and time.Now.
type Runner struct {
	API   Marketplace
	Store storage.Store
	Log   Logger

	Now func() time.Time
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

func (r *Runner) log() Logger {
	if r.Log == nil {
		return nopLogger{}
	}
	return r.Log
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Run performs the refresh end to end. Authentication failure aborts before
// any table is touched; after that, per-order and per-product failures are
// logged and skipped so one bad record never loses the batch.
func (r *Runner) Run(ctx context.Context) (totals Totals, err error) {
	log := r.log()
	totals = newTotals()

	defer func() {
		if p := recover(); p != nil {
			log.Errorf("run aborted by panic: %v", p)
			err = fmt.Errorf("run: panic: %v", p)
		}
	}()

	token, err := r.API.Token(ctx)
	if err != nil {
		log.Errorf("authentication failed: %v", err)
		return totals, fmt.Errorf("run: token: %w", err)
	}
	log.Infof("authenticated")

	for _, table := range storage.Targets() {
		n, derr := r.Store.DeleteAll(ctx, table)
		if derr != nil {
			log.Errorf("wipe %s: %v", table, derr)
			continue
		}
		totals.Deleted[table] = n
		log.Infof("wiped %s: %d rows removed", table, n)
	}

	productIDs := r.loadOrders(ctx, token, &totals)

	if productIDs.Len() == 0 {
		log.Infof("no products referenced, skipping product load")
	} else {
		r.loadProducts(ctx, token, productIDs.IDs(), &totals)
	}

	for _, table := range storage.Targets() {
		n := totals.Inserted[table]
		log.Infof("loaded %s: %d rows", table, n)
		metrics.IncCounter("dropsync.rows.inserted", float64(n), metrics.Labels{"table": string(table)})
	}
	metrics.IncCounter("dropsync.orders.processed", float64(totals.Orders), nil)
	metrics.IncCounter("dropsync.products.processed", float64(totals.Products), nil)

	return totals, nil
}

// loadOrders walks the order pages, flattens each order into sales rows and
// inserts one batch per page. It returns the product ids referenced by the
// order lines, in discovery order.
func (r *Runner) loadOrders(ctx context.Context, token string, totals *Totals) *flatten.ProductIDSet {
	log := r.log()
	productIDs := flatten.NewProductIDSet()

	pages := r.API.OrderPages(token)
	pageNo := 0
	for {
		orders, ok := pages.Next(ctx)
		if !ok {
			break
		}
		pageNo++

		rows := make([]model.SalesRow, 0, len(orders))
		for _, o := range orders {
			order := o
			if detail, derr := r.API.OrderDetail(ctx, token, o.OrderID); derr != nil {
				log.Warnf("order %s: detail fetch failed, using listing record: %v", o.OrderID, derr)
			} else {
				order = detail
			}

			siteID := r.resolveSiteID(ctx, order)
			rows = append(rows, flatten.SalesRows(order, siteID)...)
			productIDs.AddOrderLines(order)
			totals.Orders++
		}

		n, err := r.Store.InsertSales(ctx, rows)
		if err != nil {
			log.Errorf("insert sales page %d: %v", pageNo, err)
			continue
		}
		totals.Inserted[storage.TableSales] += n
		log.Infof("page %d: %d orders, %d sales rows inserted", pageNo, len(orders), n)
	}

	if pageNo == 0 {
		log.Infof("no orders returned")
	}
	return productIDs
}

func (r *Runner) resolveSiteID(ctx context.Context, o api.Order) int64 {
	log := r.log()
	ref := o.Customer.Reference
	if ref == "" {
		log.Warnf("order %s: no customer reference, site id defaults to 0", o.OrderID)
		return 0
	}
	siteID, err := r.Store.SiteID(ctx, ref)
	if err != nil {
		log.Errorf("order %s: site lookup for %q: %v", o.OrderID, ref, err)
		return 0
	}
	if siteID == 0 {
		log.Warnf("order %s: no site id mapped for customer %q", o.OrderID, ref)
	}
	return siteID
}

// loadProducts fetches every referenced product and writes its product,
// category and attribute rows. A failed product fetch skips that product
// entirely; a failed category level leaves that level's label empty.
func (r *Runner) loadProducts(ctx context.Context, token string, ids []string, totals *Totals) {
	log := r.log()

	for _, id := range ids {
		p, err := r.API.Product(ctx, token, id)
		if err != nil {
			log.Warnf("product %s: fetch failed, skipping: %v", id, err)
			continue
		}

		row, ok := flatten.ProductRow(p)
		if !ok {
			log.Warnf("product %s: record has no product id, skipping", id)
			continue
		}
		n, err := r.Store.InsertProducts(ctx, []model.ProductRow{row})
		if err != nil {
			log.Errorf("insert product %s: %v", id, err)
			continue
		}
		totals.Inserted[storage.TableProducts] += n
		totals.Products++

		r.loadCategories(ctx, token, p, totals)

		attrs := flatten.AttributeRows(p, r.now())
		if len(attrs) > 0 {
			n, err := r.Store.InsertAttributes(ctx, attrs)
			if err != nil {
				log.Errorf("insert attributes for %s: %v", id, err)
			} else {
				totals.Inserted[storage.TableAttributes] += n
			}
		}
	}
}

func (r *Runner) loadCategories(ctx context.Context, token string, p api.Product, totals *Totals) {
	log := r.log()

	levels, ok := flatten.CategoryLevels(p.Category)
	if !ok {
		if p.Category != "" {
			log.Warnf("product %s: category reference %q too short, skipping hierarchy", p.ProductID, p.Category)
		}
		return
	}

	row := model.CategoryRow{ID1: levels[0], ID2: levels[1], ID3: levels[2]}
	labels := [3]*string{&row.Label1, &row.Label2, &row.Label3}
	for i, ref := range levels {
		cat, err := r.API.Category(ctx, token, ref)
		if err != nil {
			log.Warnf("product %s: category %s fetch failed: %v", p.ProductID, ref, err)
			continue
		}
		*labels[i] = cat.Label
		if i == 2 {
			row.IsActive = cat.IsActive
		}
	}

	n, err := r.Store.InsertCategories(ctx, []model.CategoryRow{row})
	if err != nil {
		log.Errorf("insert categories for %s: %v", p.ProductID, err)
		return
	}
	totals.Inserted[storage.TableCategories] += n
}
