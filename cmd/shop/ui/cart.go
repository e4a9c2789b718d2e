package ui

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/logging"
	"storefront/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

type checkoutMsg struct {
	result
	err error
}

// CartScreen edits the shell's cart. It holds no state of its own beyond
// the cursor; the cart outlives the screen.
type CartScreen struct {
	env    *Env
	mount  int
	cursor int
	width  int
	height int
}

// NewCartScreen creates the cart screen.
func NewCartScreen(env *Env, mount int) *CartScreen {
	return &CartScreen{env: env, mount: mount}
}

// Init does nothing; the cart is local.
func (s *CartScreen) Init() tea.Cmd { return nil }

func (s *CartScreen) selected() (types.CartItem, bool) {
	items := s.env.Cart.Items()
	if s.cursor < 0 || s.cursor >= len(items) {
		return types.CartItem{}, false
	}
	return items[s.cursor], true
}

// Update handles quantity, removal and checkout keys.
func (s *CartScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case checkoutMsg:
		if errors.Is(msg.err, cart.ErrCheckoutUnavailable) {
			return s, toast(toastInfo, "Checkout", "Checkout is not available yet")
		}
		if msg.err != nil {
			return s, toast(toastError, "Checkout failed", msg.err.Error())
		}
		return s, nil

	case tea.KeyMsg:
		c := s.env.Cart
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < c.Len()-1 {
				s.cursor++
			}
		case "+", "=", "right":
			if it, ok := s.selected(); ok {
				c.UpdateQuantity(it.Product.ID, it.Quantity+1)
			}
		case "-", "left":
			if it, ok := s.selected(); ok {
				c.UpdateQuantity(it.Product.ID, it.Quantity-1)
			}
		case "x", "delete", "backspace":
			if it, ok := s.selected(); ok {
				c.Remove(it.Product.ID)
				logging.UI("Removed %s from cart", it.Product.ID)
				if s.cursor >= c.Len() && s.cursor > 0 {
					s.cursor--
				}
			}
		case "enter":
			if c.Len() == 0 {
				return s, navigate(RouteHome)
			}
			tag := result{mount: s.mount}
			ctx := s.env.ctx()
			return s, func() tea.Msg { return checkoutMsg{result: tag, err: c.Checkout(ctx)} }
		}
	}
	return s, nil
}

// SetSize stores the viewport size.
func (s *CartScreen) SetSize(w, h int) { s.width, s.height = w, h }

// CapturesInput is always false.
func (s *CartScreen) CapturesInput() bool { return false }

// View renders the cart lines and the derived total.
func (s *CartScreen) View() string {
	st := s.env.Styles
	c := s.env.Cart
	items := c.Items()

	if len(items) == 0 {
		return st.Title.Render("Your Cart is Empty") + "\n" +
			st.Body.Render("Add some products to your cart to see them here.") + "\n\n" +
			st.Button.Render("Continue Shopping") + st.Muted.Render("  enter")
	}

	var sb strings.Builder
	sb.WriteString(st.Title.Render("Shopping Cart"))
	sb.WriteString("\n")
	for i, it := range items {
		minus, plus := st.Button, st.Button
		if !c.CanDecrement(it.Product.ID) {
			minus = st.Disabled
		}
		if !c.CanIncrement(it.Product.ID) {
			plus = st.Disabled
		}
		line := fmt.Sprintf("%s\n%s   %s %d %s   %s",
			st.Bold.Render(it.Product.Name),
			st.Muted.Render(types.FormatMoney(it.Product.Price)),
			minus.Render("-"), it.Quantity, plus.Render("+"),
			st.Bold.Render(types.FormatMoney(it.Subtotal())))
		if i == s.cursor {
			sb.WriteString(st.Selected.Render(line))
		} else {
			sb.WriteString(st.Card.Render(line))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(st.Divider.Render(strings.Repeat("─", max(10, min(40, s.width-4)))))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Total: %s\n\n", st.Price.Render(types.FormatMoney(c.Total()))))
	sb.WriteString(st.Button.Render("Proceed to Checkout"))
	sb.WriteString(st.Muted.Render("  +/- quantity  x remove  enter checkout"))
	return sb.String()
}
