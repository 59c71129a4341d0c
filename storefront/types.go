package storefront

import "time"

// Product is one catalog entry as returned by the remote API.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand,omitempty"`
	Price       int64    `json:"price"` // minor currency units
	Currency    string   `json:"currency"`
	Stock       int      `json:"stock"`
	Images      []string `json:"images,omitempty"`
}

// ProductPage is one page of a filtered, sorted product listing. The
// page is cached as a unit: records and total stand or fall together.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// CartItem is one line of the customer's cart.
type CartItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// Cart is the customer's current cart.
type Cart struct {
	Items    []CartItem `json:"items"`
	Subtotal int64      `json:"subtotal"`
	Currency string     `json:"currency"`
}

// WishlistItem references a product saved for later. The product itself
// is resolved through enrichment, not embedded.
type WishlistItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	AddedAt   time.Time `json:"added_at"`
}

// Order is one placed order, list or detail form.
type Order struct {
	ID        string      `json:"id"`
	Status    string      `json:"status"`
	Items     []OrderItem `json:"items,omitempty"`
	Total     int64       `json:"total"`
	Currency  string      `json:"currency"`
	PlacedAt  time.Time   `json:"placed_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// OrderPage is one page of the admin order listing.
type OrderPage struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
}

// ReturnRequest is a return or exchange request against an order.
type ReturnRequest struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// DashboardSummary is the admin console's aggregate widget data.
type DashboardSummary struct {
	OrdersToday    int   `json:"orders_today"`
	RevenueToday   int64 `json:"revenue_today"`
	PendingReturns int   `json:"pending_returns"`
	LowStock       int   `json:"low_stock"`
}
