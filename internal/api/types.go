package api

// Wire types for the order-management REST API. Field sets cover exactly what
// the job flattens; unknown JSON fields are ignored.

// Order is one order as returned by the listing and detail endpoints.
type Order struct {
	OrderID   string `json:"orderId"`
	Reference string `json:"reference"`
	Seller    struct {
		ID int64 `json:"id"`
	} `json:"seller"`
	Customer       Customer `json:"customer"`
	BillingAddress struct {
		CompanyName string `json:"companyName"`
	} `json:"billingAddress"`
	PurchasedAt  string      `json:"purchasedAt"`
	UpdatedAt    string      `json:"updatedAt"`
	CreatedAt    string      `json:"createdAt"`
	ShippedAtMax string      `json:"shippedAtMax"`
	Status       string      `json:"status"`
	Lines        []OrderLine `json:"lines"`
}

// Customer carries the buyer reference used for the site lookup.
type Customer struct {
	Reference string `json:"reference"`
}

// OrderLine is one line of an order.
type OrderLine struct {
	Offer struct {
		ID        int64  `json:"id"`
		ProductID string `json:"productId"`
	} `json:"offer"`
	OfferPrice struct {
		UnitSalesPrice float64 `json:"unitSalesPrice"`
		ShippingCost   float64 `json:"shippingCost"`
		Commission     struct {
			AmountWithoutVat float64 `json:"amountWithoutVat"`
			Rate             float64 `json:"rate"`
		} `json:"commission"`
	} `json:"offerPrice"`
	Delivery struct {
		PromisedAtMin string `json:"promisedAtMin"`
		PromisedAtMax string `json:"promisedAtMax"`
	} `json:"delivery"`
	Parcels []Parcel `json:"parcels"`
}

// Parcel is one shipment unit of an order line.
type Parcel struct {
	ParcelNumber string `json:"parcelNumber"`
	CarrierName  string `json:"carrierName"`
	TrackingURL  string `json:"trackingUrl"`
}

// Product is the full product record from /products/{productId}.
type Product struct {
	ProductID   string `json:"productId"`
	GTIN        string `json:"gtin"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Brand       struct {
		Label string `json:"label"`
	} `json:"brand"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	Category  string `json:"category"`
	Images    []struct {
		URL string `json:"url"`
	} `json:"images"`
	Attributes []Attribute `json:"attributes"`
}

// Attribute is one product attribute; Values may hold several entries.
type Attribute struct {
	Code   string   `json:"code"`
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// Category is one hierarchy level from /categories/{categoryReference}.
type Category struct {
	Label    string `json:"label"`
	IsActive bool   `json:"isActive"`
}

type ordersPage struct {
	Items []Order `json:"items"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}
