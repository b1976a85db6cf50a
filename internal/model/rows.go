// Package model defines the flat row records loaded into the four target
// tables. Rows are built by internal/flatten from API payloads and converted
// to SQL parameters only at the storage boundary.
package model

// SalesRow is one row of the sales table: the flattening of an order, one of
// its lines, and that line's parcel (parcels are merged into one row when a
// line has more than one).
//
// Timestamps are carried as the API's ISO-ish strings; the warehouse columns
// are typed downstream and the job does not reinterpret them.
type SalesRow struct {
	OrderID           string
	Reference         string
	SellerID          int64
	CustomerReference string
	SiteID            int64
	CompanyName       string
	PurchasedAt       string
	UpdatedAt         string
	CreatedAt         string
	ShippedAtMax      string
	Status            string

	OfferID          int64
	ProductID        string
	UnitSalesPrice   float64
	ShippingCost     float64
	CommissionAmount float64
	CommissionRate   float64
	PromisedAtMin    string
	PromisedAtMax    string

	ParcelNumber string
	CarrierName  string
	TrackingURL  string
}

// ProductRow is one row of the products table. Images always has exactly six
// slots; empty slots become NULL at the storage boundary.
type ProductRow struct {
	ProductID   string
	GTIN        string
	Title       string
	Description string
	Brand       string
	Images      [6]string
	CreatedAt   string
	UpdatedAt   string
	Category    string
}

// CategoryRow is one row of the categories table: the three hierarchy levels
// derived from a category reference, each with its independently fetched
// label. IsActive is the leaf level's flag.
type CategoryRow struct {
	ID1      string
	Label1   string
	ID2      string
	Label2   string
	ID3      string
	Label3   string
	IsActive bool
}

// AttributeRow is one row of the attributes table. Value carries multi-valued
// attributes joined with ", ". UpdatedAt is stamped at flattening time, not
// sourced from the API.
type AttributeRow struct {
	ProductID string
	Code      string
	Label     string
	Value     string
	UpdatedAt string
}
