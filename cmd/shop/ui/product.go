package ui

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/api"
	"storefront/internal/cart"
	"storefront/internal/logging"
	"storefront/internal/query"
	"storefront/internal/shop"
	"storefront/internal/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

type productMsg struct {
	result
	product types.Product
	err     error
}

// ProductScreen shows one product with a quantity selector bounded to
// [1, stock] and an add-to-cart action.
type ProductScreen struct {
	env   *Env
	mount int
	id    string

	state    query.State[types.Product]
	quantity int

	width    int
	height   int
	renderer *glamour.TermRenderer
}

// NewProductScreen creates the details screen for id.
func NewProductScreen(env *Env, mount int, id string) *ProductScreen {
	return &ProductScreen{env: env, mount: mount, id: id, quantity: 1, width: 80}
}

// Init fetches the product.
func (s *ProductScreen) Init() tea.Cmd {
	s.state = query.Loading[types.Product](s.env.Service.Cache(), shop.ProductKey(s.id))
	tag := result{mount: s.mount}
	svc, ctx, id := s.env.Service, s.env.ctx(), s.id
	return func() tea.Msg {
		p, err := svc.Product(ctx, id)
		return productMsg{result: tag, product: p, err: err}
	}
}

// Quantity is the selected quantity.
func (s *ProductScreen) Quantity() int { return s.quantity }

// Update handles the selector and add-to-cart keys.
func (s *ProductScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case productMsg:
		if msg.err != nil && !api.IsUnauthenticated(msg.err) {
			logging.Get(logging.CategoryUI).Warn("Product %s failed: %v", s.id, msg.err)
		}
		s.state = s.state.Resolve(msg.product, msg.err)
		s.clampQuantity()
		return s, nil

	case tea.KeyMsg:
		if s.state.Status != query.StatusSuccess {
			return s, nil
		}
		switch msg.String() {
		case "+", "=", "right":
			s.setQuantity(s.quantity + 1)
		case "-", "left":
			s.setQuantity(s.quantity - 1)
		case "enter", "a":
			return s, s.addToCart()
		}
	}
	return s, nil
}

func (s *ProductScreen) setQuantity(q int) {
	if q < 1 || q > s.state.Data.Stock {
		return
	}
	s.quantity = q
}

func (s *ProductScreen) clampQuantity() {
	stock := s.state.Data.Stock
	if s.quantity > stock {
		s.quantity = stock
	}
	if s.quantity < 1 {
		s.quantity = 1
	}
}

func (s *ProductScreen) addToCart() tea.Cmd {
	p := s.state.Data
	if !p.InStock() {
		return nil
	}
	if err := s.env.Cart.Add(p, s.quantity); err != nil {
		title := "Could not add to cart"
		if errors.Is(err, cart.ErrExceedsStock) {
			return toast(toastError, title, fmt.Sprintf("Only %d %s in stock", p.Stock, p.Name))
		}
		return toast(toastError, title, err.Error())
	}
	logging.UI("Added %d x %s to cart", s.quantity, p.ID)
	return toast(toastSuccess, "Added to cart", fmt.Sprintf("%d %s added to cart", s.quantity, p.Name))
}

// SetSize stores the viewport size.
func (s *ProductScreen) SetSize(w, h int) {
	if w != s.width {
		s.renderer = nil
	}
	s.width, s.height = w, h
}

// CapturesInput is always false.
func (s *ProductScreen) CapturesInput() bool { return false }

func (s *ProductScreen) markdown(text string) string {
	if s.renderer == nil {
		style := "light"
		if s.env.Styles.Theme.IsDark {
			style = "dark"
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath(style),
			glamour.WithWordWrap(max(20, s.width-8)),
		)
		if err != nil {
			return text
		}
		s.renderer = r
	}
	out, err := s.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}

// View renders the product.
func (s *ProductScreen) View() string {
	st := s.env.Styles
	switch s.state.Status {
	case query.StatusLoading:
		return st.Muted.Render("Loading...")
	case query.StatusError:
		if api.StatusOf(s.state.Err) == 404 {
			return st.Body.Render("Product not found")
		}
		return st.Error.Render("Failed to load product.")
	}

	p := s.state.Data
	var sb strings.Builder
	sb.WriteString(st.Title.Render(p.Name))
	sb.WriteString("\n")
	sb.WriteString(st.Price.Render(types.FormatMoney(p.Price)))
	sb.WriteString("  ")
	sb.WriteString(st.StockBadge(p))
	sb.WriteString("\n\n")
	if p.Description != "" {
		sb.WriteString(s.markdown(p.Description))
		sb.WriteString("\n\n")
	}

	minus, plus := st.Button, st.Button
	if s.quantity <= 1 {
		minus = st.Disabled
	}
	if s.quantity >= p.Stock {
		plus = st.Disabled
	}
	sb.WriteString(fmt.Sprintf("Quantity: %s %d %s   ", minus.Render("-"), s.quantity, plus.Render("+")))
	if p.InStock() {
		sb.WriteString(st.Button.Render("Add to Cart"))
	} else {
		sb.WriteString(st.Disabled.Render("Add to Cart"))
	}
	sb.WriteString("\n\n")

	sb.WriteString(st.Title.Render("Product Details"))
	sb.WriteString("\n")
	sb.WriteString(st.Label.Render("Category:") + " " + p.Category + "\n")
	sb.WriteString(st.Label.Render("Stock:") + fmt.Sprintf(" %d units\n", p.Stock))
	if !p.CreatedAt.IsZero() {
		sb.WriteString(st.Label.Render("Added:") + " " + p.CreatedAt.Format("2006-01-02") + "\n")
	}
	if held := s.env.Cart.Quantity(p.ID); held > 0 {
		sb.WriteString("\n" + st.Muted.Render(fmt.Sprintf("%d already in your cart", held)))
	}
	return sb.String()
}
