// Package cart holds the shopping cart for one program run.
//
// The cart is never persisted. It keeps a full product snapshot per line so
// prices and stock shown in the cart match what was added, and it derives the
// total on every call instead of storing it.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/logging"
	"storefront/internal/types"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned when adding fewer than one unit.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrExceedsStock is returned when a line would exceed the product's stock.
	ErrExceedsStock = errors.New("quantity exceeds available stock")
	// ErrCheckoutUnavailable is returned by Checkout; orders cannot be placed
	// from this client yet.
	ErrCheckoutUnavailable = errors.New("checkout is not available")
)

// Cart is safe for concurrent use.
type Cart struct {
	mu    sync.RWMutex
	items []types.CartItem
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

func (c *Cart) index(productID string) int {
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Add puts qty units of p into the cart, merging with an existing line.
// The resulting quantity must stay within [1, p.Stock].
func (c *Cart) Add(p types.Product, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(p.ID)
	total := qty
	if i >= 0 {
		total += c.items[i].Quantity
	}
	if total > p.Stock {
		return fmt.Errorf("%w: %s has %d in stock, cart would hold %d", ErrExceedsStock, p.Name, p.Stock, total)
	}

	if i >= 0 {
		// Refresh the snapshot so stock bounds follow the latest fetch.
		c.items[i].Product = p
		c.items[i].Quantity = total
	} else {
		c.items = append(c.items, types.CartItem{Product: p, Quantity: qty})
	}
	logging.CartDebug("added %d x %s (now %d)", qty, p.ID, total)
	return nil
}

// UpdateQuantity sets the quantity of a line. It returns false and changes
// nothing when the product is absent or qty is outside [1, stock].
func (c *Cart) UpdateQuantity(productID string, qty int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(productID)
	if i < 0 || qty < 1 || qty > c.items[i].Product.Stock {
		return false
	}
	c.items[i].Quantity = qty
	logging.CartDebug("set %s to %d", productID, qty)
	return true
}

// Remove drops a line. Removing an absent product is a no-op.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(productID)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	logging.CartDebug("removed %s", productID)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []types.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Units returns the number of units across all lines.
func (c *Cart) Units() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Quantity returns the quantity held for productID, or 0.
func (c *Cart) Quantity(productID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(productID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// CanIncrement reports whether one more unit fits within stock.
func (c *Cart) CanIncrement(productID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.index(productID)
	return i >= 0 && c.items[i].Quantity < c.items[i].Product.Stock
}

// CanDecrement reports whether the line holds more than one unit.
func (c *Cart) CanDecrement(productID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.index(productID)
	return i >= 0 && c.items[i].Quantity > 1
}

// Total is the sum of quantity times price over all lines.
func (c *Cart) Total() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.SumItems(c.items)
}

// Checkout always fails with ErrCheckoutUnavailable and leaves the cart
// untouched. No order is created.
func (c *Cart) Checkout(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logging.Cart("checkout requested with %d lines, total %s", c.Len(), types.FormatMoney(c.Total()))
	return ErrCheckoutUnavailable
}
