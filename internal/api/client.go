// Package api is the client for the order-management REST API: token
// exchange, paginated order listing, and order/product/category detail reads.
//
// Every remote call class except the order-detail read is followed by a flat
// throttle delay (default one second). The delay and the clock behind it are
// injected so tests run instantly.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Logger is the minimal logging surface the client needs. runlog.Log
// satisfies it.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Config carries the endpoint and credential settings for the client.
type Config struct {
	TokenURL     string
	BaseURL      string // e.g. https://api.example.com/v2; paths are appended
	ClientID     string
	ClientSecret string
	GrantType    string

	PageSize     int    // orders page size; defaults to 100
	CreatedAtMin string // ISO-ish cutoff for the orders listing

	// ThrottleDelay is the flat delay applied after each throttled call
	// class. Defaults to one second.
	ThrottleDelay time.Duration
}

// Client calls the marketplace API sequentially. It holds no token state;
// the caller obtains a token once per run and passes it to each method.
type Client struct {
	cfg Config

	// HTTP is the underlying client. Seam for tests; defaults to a client
	// with a 60s timeout.
	HTTP *http.Client

	// Sleep is the throttle seam; defaults to time.Sleep.
	Sleep func(time.Duration)

	// Log receives per-call diagnostics; defaults to a nop logger.
	Log Logger
}

// New builds a Client with defaults filled in.
func New(cfg Config) *Client {
	if cfg.GrantType == "" {
		cfg.GrantType = "client_credentials"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.ThrottleDelay <= 0 {
		cfg.ThrottleDelay = time.Second
	}
	return &Client{
		cfg:   cfg,
		HTTP:  &http.Client{Timeout: 60 * time.Second},
		Sleep: time.Sleep,
		Log:   nopLogger{},
	}
}

// pause applies the flat throttle delay for a throttled call class.
func (c *Client) pause() {
	c.Sleep(c.cfg.ThrottleDelay)
}

// Token exchanges the client credentials for a bearer token.
//
// A single attempt is made, followed by the throttle delay regardless of
// outcome. Any failure (transport, non-200, missing access_token) is fatal
// to the run and reported as an error.
func (c *Client) Token(ctx context.Context) (string, error) {
	defer c.pause()

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", c.cfg.GrantType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("token response: %w", err)
	}

	var tr tokenResponse
	_ = json.Unmarshal(body, &tr)

	if resp.StatusCode != http.StatusOK {
		msg := tr.Error
		if msg == "" {
			msg = "unknown error"
		}
		return "", fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, msg)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access_token")
	}

	c.Log.Infof("access token acquired")
	return tr.AccessToken, nil
}

// OrderPages returns an iterator over order pages, starting at page 1.
// The iterator is single-consumer and restartable only by calling OrderPages
// again.
func (c *Client) OrderPages(token string) *OrderPageIter {
	return &OrderPageIter{c: c, token: token, page: 1}
}

// OrderPageIter lazily walks the paginated orders listing.
//
// Termination: the first empty page, any non-200 response, or a transport
// error all end the sequence without error; the page counter never rewinds.
type OrderPageIter struct {
	c     *Client
	token string
	page  int
	done  bool
}

// Page reports the index of the page the next call to Next will fetch.
func (it *OrderPageIter) Page() int { return it.page }

// Next fetches the next page. It returns (orders, true) for each non-empty
// page and (nil, false) once the sequence is exhausted.
func (it *OrderPageIter) Next(ctx context.Context) ([]Order, bool) {
	if it.done {
		return nil, false
	}

	it.c.Log.Infof("fetching orders page %d", it.page)

	var page ordersPage
	err := it.c.getJSON(ctx, it.token, it.c.ordersURL(it.page), &page, true)
	if err != nil {
		it.c.Log.Warnf("orders page %d: %v", it.page, err)
		it.done = true
		return nil, false
	}
	if len(page.Items) == 0 {
		it.c.Log.Infof("no orders on page %d; end of order pages", it.page)
		it.done = true
		return nil, false
	}

	it.page++
	return page.Items, true
}

func (c *Client) ordersURL(page int) string {
	q := url.Values{}
	q.Set("pageIndex", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(c.cfg.PageSize))
	q.Set("createdAtMin", c.cfg.CreatedAtMin)
	return c.cfg.BaseURL + "/orders?" + q.Encode()
}

// OrderDetail fetches one order's full record. This call class is not
// throttled.
func (c *Client) OrderDetail(ctx context.Context, token, orderID string) (Order, error) {
	var o Order
	err := c.getJSON(ctx, token, c.cfg.BaseURL+"/orders/"+url.PathEscape(orderID), &o, false)
	if err != nil {
		return Order{}, fmt.Errorf("order %s: %w", orderID, err)
	}
	return o, nil
}

// Product fetches one product's full record.
func (c *Client) Product(ctx context.Context, token, productID string) (Product, error) {
	var p Product
	err := c.getJSON(ctx, token, c.cfg.BaseURL+"/products/"+url.PathEscape(productID), &p, true)
	if err != nil {
		return Product{}, fmt.Errorf("product %s: %w", productID, err)
	}
	return p, nil
}

// Category fetches one hierarchy level's label and active flag.
func (c *Client) Category(ctx context.Context, token, reference string) (Category, error) {
	var cat Category
	err := c.getJSON(ctx, token, c.cfg.BaseURL+"/categories/"+url.PathEscape(reference), &cat, true)
	if err != nil {
		return Category{}, fmt.Errorf("category %s: %w", reference, err)
	}
	return cat, nil
}

// getJSON performs an authenticated GET and decodes the JSON body into out.
// When throttled is true the flat delay applies after the attempt, whatever
// the outcome.
func (c *Client) getJSON(ctx context.Context, token, rawURL string, out any, throttled bool) error {
	if throttled {
		defer c.pause()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
