// Package flatten turns nested order and product payloads into the flat row
// records loaded into the warehouse. Everything here is pure: no I/O, no
// clocks beyond the timestamp passed in.
package flatten

import (
	"strings"
	"time"

	"dropsync/internal/api"
	"dropsync/internal/model"
)

const (
	parcelSeparator = ";"
	valueSeparator  = ", "

	attributeTimeLayout = "2006-01-02T15:04:05Z"
)

// SalesRows flattens one order into sales rows: one row per line, with a
// single placeholder line when the order has none. A line's parcels collapse
// into one row; with more than one parcel the three parcel fields become
// semicolon-joined strings.
//
// Orders without an orderId produce no rows.
func SalesRows(o api.Order, siteID int64) []model.SalesRow {
	if o.OrderID == "" {
		return nil
	}

	lines := o.Lines
	if len(lines) == 0 {
		lines = []api.OrderLine{{}}
	}

	rows := make([]model.SalesRow, 0, len(lines))
	for _, line := range lines {
		row := model.SalesRow{
			OrderID:           o.OrderID,
			Reference:         o.Reference,
			SellerID:          o.Seller.ID,
			CustomerReference: o.Customer.Reference,
			SiteID:            siteID,
			CompanyName:       o.BillingAddress.CompanyName,
			PurchasedAt:       o.PurchasedAt,
			UpdatedAt:         o.UpdatedAt,
			CreatedAt:         o.CreatedAt,
			ShippedAtMax:      o.ShippedAtMax,
			Status:            o.Status,

			OfferID:          line.Offer.ID,
			ProductID:        line.Offer.ProductID,
			UnitSalesPrice:   line.OfferPrice.UnitSalesPrice,
			ShippingCost:     line.OfferPrice.ShippingCost,
			CommissionAmount: line.OfferPrice.Commission.AmountWithoutVat,
			CommissionRate:   line.OfferPrice.Commission.Rate,
			PromisedAtMin:    line.Delivery.PromisedAtMin,
			PromisedAtMax:    line.Delivery.PromisedAtMax,
		}
		row.ParcelNumber, row.CarrierName, row.TrackingURL = mergeParcels(line.Parcels)
		rows = append(rows, row)
	}
	return rows
}

// mergeParcels reduces a line's parcels to one (number, carrier, url) triple.
// Zero parcels yield empty fields; one parcel passes through; several join
// with ";" in parcel order.
func mergeParcels(parcels []api.Parcel) (number, carrier, tracking string) {
	switch len(parcels) {
	case 0:
		return "", "", ""
	case 1:
		return parcels[0].ParcelNumber, parcels[0].CarrierName, parcels[0].TrackingURL
	}

	numbers := make([]string, len(parcels))
	carriers := make([]string, len(parcels))
	urls := make([]string, len(parcels))
	for i, p := range parcels {
		numbers[i] = p.ParcelNumber
		carriers[i] = p.CarrierName
		urls[i] = p.TrackingURL
	}
	return strings.Join(numbers, parcelSeparator),
		strings.Join(carriers, parcelSeparator),
		strings.Join(urls, parcelSeparator)
}

// ProductRow flattens one product. The image list is truncated or padded to
// exactly six slots. ok is false when the payload has no productId.
func ProductRow(p api.Product) (model.ProductRow, bool) {
	if p.ProductID == "" {
		return model.ProductRow{}, false
	}

	row := model.ProductRow{
		ProductID:   p.ProductID,
		GTIN:        p.GTIN,
		Title:       p.Title,
		Description: p.Description,
		Brand:       p.Brand.Label,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Category:    p.Category,
	}
	for i := 0; i < len(row.Images) && i < len(p.Images); i++ {
		row.Images[i] = p.Images[i].URL
	}
	return row, true
}

// CategoryLevels derives the three hierarchy prefixes (2, 4 and 6 characters)
// from a category reference. References shorter than six characters after
// trimming yield ok=false: no partial hierarchies are emitted.
//
// References are ASCII codes, so the prefixes are byte slices; a multi-byte
// reference would split mid-rune.
func CategoryLevels(reference string) ([3]string, bool) {
	ref := strings.TrimSpace(reference)
	if len(ref) < 6 {
		return [3]string{}, false
	}
	return [3]string{ref[:2], ref[:4], ref[:6]}, true
}

// AttributeRows flattens a product's attributes: one row per attribute, with
// multi-valued attributes joined into a single string. The update timestamp
// is the moment of flattening, not an API value.
func AttributeRows(p api.Product, now time.Time) []model.AttributeRow {
	if p.ProductID == "" || len(p.Attributes) == 0 {
		return nil
	}

	stamp := now.UTC().Format(attributeTimeLayout)
	rows := make([]model.AttributeRow, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		rows = append(rows, model.AttributeRow{
			ProductID: p.ProductID,
			Code:      a.Code,
			Label:     a.Label,
			Value:     strings.Join(a.Values, valueSeparator),
			UpdatedAt: stamp,
		})
	}
	return rows
}

// ProductIDSet collects distinct product ids in discovery order, dropping
// empties.
type ProductIDSet struct {
	seen map[string]struct{}
	ids  []string
}

// NewProductIDSet returns an empty set.
func NewProductIDSet() *ProductIDSet {
	return &ProductIDSet{seen: make(map[string]struct{})}
}

// Add records id if it is non-empty and not yet present. It reports whether
// the id was newly added.
func (s *ProductIDSet) Add(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// AddOrderLines records every product id found on the order's lines.
func (s *ProductIDSet) AddOrderLines(o api.Order) {
	for _, line := range o.Lines {
		s.Add(line.Offer.ProductID)
	}
}

// IDs returns the collected ids in discovery order.
func (s *ProductIDSet) IDs() []string { return s.ids }

// Len reports how many distinct ids were collected.
func (s *ProductIDSet) Len() int { return len(s.ids) }
