// Package storefront is the feature-facing layer of the coherence
// stack: a typed client for the remote storefront REST API plus a
// Service that routes every read through the query cache and every
// write through the mutation executor. The rest of the application
// renders from cache snapshots and never talks HTTP directly.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-storefront-cache/lookup"
	"github.com/goliatone/go-storefront-cache/viewstate"
)

// APIError carries a non-2xx response from the remote API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("storefront API error (status %d): %s", e.StatusCode, e.Message)
}

// Client is the typed HTTP client for the storefront API. It knows
// transport details; the coherence layer above consumes it only as
// opaque fetchers and mutation execute functions.
type Client struct {
	http    *http.Client
	baseURL string
	cfg     Config
	log     zerolog.Logger
}

// NewClient creates a Client from cfg. A nil httpClient uses a default
// client with the configured timeout.
func NewClient(cfg Config, httpClient *http.Client, log zerolog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		log:     log.With().Str("component", "storefront-client").Logger(),
	}, nil
}

// Products returns one page of the catalog for the given view state.
func (c *Client) Products(ctx context.Context, state viewstate.State, codec *viewstate.Codec) (ProductPage, error) {
	var page ProductPage
	err := c.getJSON(ctx, "/products", codec.Encode(state), &page)
	return page, err
}

// Product returns one product by id.
func (c *Client) Product(ctx context.Context, id string) (Product, error) {
	var p Product
	err := c.getJSON(ctx, "/products/"+url.PathEscape(id), "", &p)
	return p, err
}

// Cart returns the customer's current cart.
func (c *Client) Cart(ctx context.Context) (Cart, error) {
	var cart Cart
	err := c.getJSON(ctx, "/cart", "", &cart)
	return cart, err
}

// AddToCart adds a product to the cart and returns the updated cart.
func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) (Cart, error) {
	var cart Cart
	body := map[string]any{"product_id": productID, "quantity": quantity}
	err := c.sendJSON(ctx, http.MethodPost, "/cart/items", body, &cart)
	return cart, err
}

// UpdateCartItem changes a cart line's quantity.
func (c *Client) UpdateCartItem(ctx context.Context, itemID string, quantity int) (Cart, error) {
	var cart Cart
	body := map[string]any{"quantity": quantity}
	err := c.sendJSON(ctx, http.MethodPatch, "/cart/items/"+url.PathEscape(itemID), body, &cart)
	return cart, err
}

// RemoveFromCart deletes a cart line.
func (c *Client) RemoveFromCart(ctx context.Context, itemID string) (Cart, error) {
	var cart Cart
	err := c.sendJSON(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(itemID), nil, &cart)
	return cart, err
}

// Wishlist returns the customer's wishlist entries.
func (c *Client) Wishlist(ctx context.Context) ([]WishlistItem, error) {
	var items []WishlistItem
	err := c.getJSON(ctx, "/wishlist", "", &items)
	return items, err
}

// AddToWishlist saves a product for later.
func (c *Client) AddToWishlist(ctx context.Context, productID string) (WishlistItem, error) {
	var item WishlistItem
	body := map[string]any{"product_id": productID}
	err := c.sendJSON(ctx, http.MethodPost, "/wishlist/items", body, &item)
	return item, err
}

// RemoveFromWishlist deletes a wishlist entry.
func (c *Client) RemoveFromWishlist(ctx context.Context, itemID string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/wishlist/items/"+url.PathEscape(itemID), nil, nil)
}

// MoveWishlistItemToCart moves a wishlist entry into the cart in one
// server-side operation and returns the updated cart.
func (c *Client) MoveWishlistItemToCart(ctx context.Context, itemID string) (Cart, error) {
	var cart Cart
	err := c.sendJSON(ctx, http.MethodPost, "/wishlist/items/"+url.PathEscape(itemID)+"/move-to-cart", nil, &cart)
	return cart, err
}

// Orders returns one page of the order listing for the view state.
func (c *Client) Orders(ctx context.Context, state viewstate.State, codec *viewstate.Codec) (OrderPage, error) {
	var page OrderPage
	err := c.getJSON(ctx, "/orders", codec.Encode(state), &page)
	return page, err
}

// Order returns one order by id.
func (c *Client) Order(ctx context.Context, id string) (Order, error) {
	var o Order
	err := c.getJSON(ctx, "/orders/"+url.PathEscape(id), "", &o)
	return o, err
}

// PlaceOrder checks the current cart out into an order.
func (c *Client) PlaceOrder(ctx context.Context) (Order, error) {
	var o Order
	err := c.sendJSON(ctx, http.MethodPost, "/orders", nil, &o)
	return o, err
}

// UpdateOrderStatus transitions an order's status (admin console).
func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) (Order, error) {
	var o Order
	body := map[string]any{"status": status}
	err := c.sendJSON(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/status", body, &o)
	return o, err
}

// CreateReturn opens a return request against an order.
func (c *Client) CreateReturn(ctx context.Context, orderID, productID, reason string) (ReturnRequest, error) {
	var r ReturnRequest
	body := map[string]any{"order_id": orderID, "product_id": productID, "reason": reason}
	err := c.sendJSON(ctx, http.MethodPost, "/returns", body, &r)
	return r, err
}

// CreateExchange opens an exchange request against an order.
func (c *Client) CreateExchange(ctx context.Context, orderID, productID, reason string) (ReturnRequest, error) {
	var r ReturnRequest
	body := map[string]any{"order_id": orderID, "product_id": productID, "reason": reason}
	err := c.sendJSON(ctx, http.MethodPost, "/exchanges", body, &r)
	return r, err
}

// Lookup returns one reference-data table by name.
func (c *Client) Lookup(ctx context.Context, name string) ([]lookup.Item, error) {
	var items []lookup.Item
	err := c.getJSON(ctx, "/lookups/"+url.PathEscape(name), "", &items)
	return items, err
}

// Dashboard returns the admin console's aggregate summary.
func (c *Client) Dashboard(ctx context.Context) (DashboardSummary, error) {
	var s DashboardSummary
	err := c.getJSON(ctx, "/dashboard/summary", "", &s)
	return s, err
}

// getJSON performs a GET and decodes the response body into dest.
func (c *Client) getJSON(ctx context.Context, path, rawQuery string, dest any) error {
	u := c.baseURL + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	return c.do(req, dest)
}

// sendJSON performs a write request with an optional JSON body and
// decodes the response into dest when dest is non-nil.
func (c *Client) sendJSON(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request %s: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status_code", resp.StatusCode).
			Msg("API request failed")
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response %s: %w", req.URL.Path, err)
	}
	return nil
}
