package flatten

import (
	"reflect"
	"testing"
	"time"

	"dropsync/internal/api"
)

func orderWithLines(lines ...api.OrderLine) api.Order {
	o := api.Order{
		OrderID:   "O-1",
		Reference: "REF-1",
		Status:    "SHIPPED",
		Lines:     lines,
	}
	o.Seller.ID = 42
	o.Customer.Reference = "CUST-1"
	return o
}

func lineWithParcels(productID string, parcels ...api.Parcel) api.OrderLine {
	var l api.OrderLine
	l.Offer.ID = 7
	l.Offer.ProductID = productID
	l.Parcels = parcels
	return l
}

func TestSalesRows_MultiParcelLineMergesIntoOneRow(t *testing.T) {
	t.Parallel()

	o := orderWithLines(lineWithParcels("P-1",
		api.Parcel{ParcelNumber: "P1", CarrierName: "DHL", TrackingURL: "u1"},
		api.Parcel{ParcelNumber: "P2", CarrierName: "UPS", TrackingURL: "u2"},
	))

	rows := SalesRows(o, 3)
	if len(rows) != 1 {
		t.Fatalf("rows=%d, want 1 row for a multi-parcel line", len(rows))
	}
	r := rows[0]
	if r.ParcelNumber != "P1;P2" || r.CarrierName != "DHL;UPS" || r.TrackingURL != "u1;u2" {
		t.Errorf("merged parcel fields=(%q,%q,%q)", r.ParcelNumber, r.CarrierName, r.TrackingURL)
	}
	if r.SiteID != 3 || r.SellerID != 42 || r.ProductID != "P-1" {
		t.Errorf("row=%+v", r)
	}
}

func TestSalesRows_SingleParcelPassesThrough(t *testing.T) {
	t.Parallel()

	o := orderWithLines(lineWithParcels("P-1",
		api.Parcel{ParcelNumber: "P1", CarrierName: "DHL", TrackingURL: "u1"},
	))

	rows := SalesRows(o, 0)
	if len(rows) != 1 {
		t.Fatalf("rows=%d, want 1", len(rows))
	}
	if rows[0].ParcelNumber != "P1" || rows[0].CarrierName != "DHL" {
		t.Errorf("row=%+v", rows[0])
	}
}

func TestSalesRows_NoLinesEmitsPlaceholderRow(t *testing.T) {
	t.Parallel()

	rows := SalesRows(orderWithLines(), 5)
	if len(rows) != 1 {
		t.Fatalf("rows=%d, want 1 placeholder row", len(rows))
	}
	r := rows[0]
	if r.OrderID != "O-1" || r.SiteID != 5 {
		t.Errorf("row=%+v", r)
	}
	if r.ProductID != "" || r.ParcelNumber != "" {
		t.Errorf("placeholder row carries line data: %+v", r)
	}
}

func TestSalesRows_MissingOrderIDEmitsNothing(t *testing.T) {
	t.Parallel()

	o := orderWithLines(lineWithParcels("P-1"))
	o.OrderID = ""
	if rows := SalesRows(o, 1); rows != nil {
		t.Fatalf("rows=%v, want nil", rows)
	}
}

func TestProductRow_ImagesPaddedToSix(t *testing.T) {
	t.Parallel()

	p := api.Product{ProductID: "P-1"}
	p.Images = []struct {
		URL string `json:"url"`
	}{{URL: "url1"}, {URL: "url2"}}

	row, ok := ProductRow(p)
	if !ok {
		t.Fatal("ok=false")
	}
	want := [6]string{"url1", "url2", "", "", "", ""}
	if row.Images != want {
		t.Errorf("images=%v, want %v", row.Images, want)
	}
}

func TestProductRow_ImagesTruncatedToSix(t *testing.T) {
	t.Parallel()

	p := api.Product{ProductID: "P-1"}
	for i := 0; i < 8; i++ {
		p.Images = append(p.Images, struct {
			URL string `json:"url"`
		}{URL: "u"})
	}

	row, _ := ProductRow(p)
	for i, u := range row.Images {
		if u != "u" {
			t.Errorf("image %d=%q, want u", i, u)
		}
	}
}

func TestProductRow_MissingProductID(t *testing.T) {
	t.Parallel()

	if _, ok := ProductRow(api.Product{Title: "nameless"}); ok {
		t.Fatal("ok=true for product without id")
	}
}

func TestCategoryLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref  string
		want [3]string
		ok   bool
	}{
		{"123456789", [3]string{"12", "1234", "123456"}, true},
		{"123456", [3]string{"12", "1234", "123456"}, true},
		{"  123456  ", [3]string{"12", "1234", "123456"}, true},
		{"12345", [3]string{}, false},
		{"", [3]string{}, false},
		{"   ", [3]string{}, false},
	}
	for _, tc := range tests {
		got, ok := CategoryLevels(tc.ref)
		if ok != tc.ok || got != tc.want {
			t.Errorf("CategoryLevels(%q)=(%v,%v), want (%v,%v)", tc.ref, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAttributeRows_JoinsValuesAndStampsNow(t *testing.T) {
	t.Parallel()

	p := api.Product{
		ProductID: "P-1",
		Attributes: []api.Attribute{
			{Code: "color", Label: "Color", Values: []string{"red", "blue"}},
			{Code: "size", Label: "Size", Values: []string{"M"}},
		},
	}
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	rows := AttributeRows(p, now)
	if len(rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(rows))
	}
	if rows[0].Value != "red, blue" {
		t.Errorf("multi-value join=%q, want %q", rows[0].Value, "red, blue")
	}
	if rows[1].Value != "M" {
		t.Errorf("single value=%q", rows[1].Value)
	}
	for _, r := range rows {
		if r.UpdatedAt != "2026-03-01T10:30:00Z" {
			t.Errorf("UpdatedAt=%q", r.UpdatedAt)
		}
		if r.ProductID != "P-1" {
			t.Errorf("ProductID=%q", r.ProductID)
		}
	}
}

func TestAttributeRows_NoAttributes(t *testing.T) {
	t.Parallel()

	if rows := AttributeRows(api.Product{ProductID: "P-1"}, time.Now()); rows != nil {
		t.Fatalf("rows=%v, want nil", rows)
	}
}

func TestProductIDSet_OrderDedupAndNullExclusion(t *testing.T) {
	t.Parallel()

	s := NewProductIDSet()
	s.AddOrderLines(orderWithLines(
		lineWithParcels("P-2"),
		lineWithParcels(""),
		lineWithParcels("P-1"),
		lineWithParcels("P-2"),
	))
	s.Add("P-3")
	s.Add("P-1")

	want := []string{"P-2", "P-1", "P-3"}
	if !reflect.DeepEqual(s.IDs(), want) {
		t.Fatalf("IDs=%v, want %v", s.IDs(), want)
	}
	if s.Len() != 3 {
		t.Errorf("Len=%d, want 3", s.Len())
	}
}
