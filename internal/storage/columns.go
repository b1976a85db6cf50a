package storage

import "dropsync/internal/model"

// Column lists and row-to-argument conversion shared by every backend, so
// the row structs are turned into SQL parameters in exactly one place.
// Backends differ only in placeholder syntax and DDL.

// SalesColumns is the sales table's column order for inserts.
var SalesColumns = []string{
	"order_id", "reference", "seller_id", "customer_reference", "site_id",
	"company_name", "purchased_at", "updated_at", "created_at",
	"shipped_at_max", "status",
	"offer_id", "product_id", "unit_sales_price", "shipping_cost",
	"commission_amount", "commission_rate", "promised_at_min", "promised_at_max",
	"parcel_number", "carrier_name", "tracking_url",
}

// ProductColumns is the products table's column order for inserts.
var ProductColumns = []string{
	"product_id", "gtin", "title", "description", "brand",
	"image1", "image2", "image3", "image4", "image5", "image6",
	"created_at", "updated_at", "category",
}

// CategoryColumns is the categories table's column order for inserts.
var CategoryColumns = []string{
	"category_id1", "label1", "category_id2", "label2",
	"category_id3", "label3", "is_active",
}

// AttributeColumns is the attributes table's column order for inserts.
var AttributeColumns = []string{
	"product_id", "code", "label", "value", "updated_at",
}

// SalesArgs converts a sales row to insert arguments in SalesColumns order.
func SalesArgs(r model.SalesRow) []any {
	return []any{
		r.OrderID,
		nullString(r.Reference),
		nullInt64(r.SellerID),
		nullString(r.CustomerReference),
		r.SiteID,
		nullString(r.CompanyName),
		nullString(r.PurchasedAt),
		nullString(r.UpdatedAt),
		nullString(r.CreatedAt),
		nullString(r.ShippedAtMax),
		nullString(r.Status),
		nullInt64(r.OfferID),
		nullString(r.ProductID),
		r.UnitSalesPrice,
		r.ShippingCost,
		r.CommissionAmount,
		r.CommissionRate,
		nullString(r.PromisedAtMin),
		nullString(r.PromisedAtMax),
		nullString(r.ParcelNumber),
		nullString(r.CarrierName),
		nullString(r.TrackingURL),
	}
}

// ProductArgs converts a product row to insert arguments in ProductColumns
// order. Empty image slots become NULL.
func ProductArgs(r model.ProductRow) []any {
	args := []any{
		r.ProductID,
		nullString(r.GTIN),
		nullString(r.Title),
		nullString(r.Description),
		nullString(r.Brand),
	}
	for _, img := range r.Images {
		args = append(args, nullString(img))
	}
	return append(args,
		nullString(r.CreatedAt),
		nullString(r.UpdatedAt),
		nullString(r.Category),
	)
}

// CategoryArgs converts a category row to insert arguments in
// CategoryColumns order.
func CategoryArgs(r model.CategoryRow) []any {
	return []any{
		r.ID1, nullString(r.Label1),
		r.ID2, nullString(r.Label2),
		r.ID3, nullString(r.Label3),
		r.IsActive,
	}
}

// AttributeArgs converts an attribute row to insert arguments in
// AttributeColumns order.
func AttributeArgs(r model.AttributeRow) []any {
	return []any{
		r.ProductID,
		nullString(r.Code),
		nullString(r.Label),
		nullString(r.Value),
		nullString(r.UpdatedAt),
	}
}

// nullString maps "" to SQL NULL; missing optional fields land as NULL, not
// empty strings.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullInt64 maps the zero id sentinel to SQL NULL.
func nullInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
