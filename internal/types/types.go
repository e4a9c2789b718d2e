// Package types provides the shared storefront shapes exchanged with the remote API.
// Types in this package are plain data with no dependencies on transport or UI.
package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG
// =============================================================================

// Product is a catalog item as served by GET /products.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
}

var (
	// ErrNegativePrice is returned by Product.Validate for a price below zero.
	ErrNegativePrice = errors.New("product price must not be negative")
	// ErrNegativeStock is returned by Product.Validate for a stock below zero.
	ErrNegativeStock = errors.New("product stock must not be negative")
)

// Validate checks the server-side invariants the client relies on.
func (p Product) Validate() error {
	if p.Price.IsNegative() {
		return fmt.Errorf("%s: %w", p.ID, ErrNegativePrice)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%s: %w", p.ID, ErrNegativeStock)
	}
	return nil
}

// InStock reports whether at least one unit can be ordered.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// ProductFilter narrows a product listing. Empty fields mean "no constraint".
type ProductFilter struct {
	Search   string
	Category string
}

// IsZero reports whether the filter constrains nothing.
func (f ProductFilter) IsZero() bool {
	return f.Search == "" && f.Category == ""
}

// =============================================================================
// USERS
// =============================================================================

// User is the authenticated account as served by GET /users/me.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials is the POST /auth/login body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the POST /auth/register body.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// ProfileUpdate is the PUT /users/me body.
type ProfileUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthToken is the data payload of a successful login or registration.
type AuthToken struct {
	Token string `json:"token"`
}

// =============================================================================
// CART AND ORDERS
// =============================================================================

// CartItem pairs a full product snapshot with a quantity.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal is quantity x unit price.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
)

// Known reports whether s is one of the four documented statuses.
// Unknown values are kept verbatim so they can still be displayed.
func (s OrderStatus) Known() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

// Order is a past purchase as served by GET /orders.
type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ComputedTotal sums the item subtotals.
func (o Order) ComputedTotal() decimal.Decimal {
	return SumItems(o.Items)
}

// Consistent reports whether the server total matches the item lines.
func (o Order) Consistent() bool {
	return o.Total.Equal(o.ComputedTotal())
}

// SumItems returns the sum of quantity x price over items.
func SumItems(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// =============================================================================
// ENVELOPE
// =============================================================================

// Envelope is the {success, data, message?} wrapper around every API response.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// FormatMoney renders an amount as $X.YY.
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
