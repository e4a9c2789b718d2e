package ui

import (
	"fmt"
	"strings"

	"storefront/internal/api"
	"storefront/internal/logging"
	"storefront/internal/query"
	"storefront/internal/shop"
	"storefront/internal/types"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

type ordersMsg struct {
	result
	orders []types.Order
	err    error
}

// OrdersScreen lists the user's orders with status badges.
type OrdersScreen struct {
	env      *Env
	mount    int
	state    query.State[[]types.Order]
	viewport viewport.Model
	width    int
	height   int
}

// NewOrdersScreen creates the order history screen.
func NewOrdersScreen(env *Env, mount int) *OrdersScreen {
	return &OrdersScreen{env: env, mount: mount, viewport: viewport.New(80, 20)}
}

// Init fetches the order history.
func (s *OrdersScreen) Init() tea.Cmd {
	s.state = query.Loading[[]types.Order](s.env.Service.Cache(), shop.OrdersKey())
	s.refresh()
	tag := result{mount: s.mount}
	svc, ctx := s.env.Service, s.env.ctx()
	return func() tea.Msg {
		orders, err := svc.Orders(ctx)
		return ordersMsg{result: tag, orders: orders, err: err}
	}
}

// Update handles results and scrolling.
func (s *OrdersScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case ordersMsg:
		if msg.err != nil && !api.IsUnauthenticated(msg.err) {
			logging.Get(logging.CategoryUI).Warn("Order history failed: %v", msg.err)
		}
		s.state = s.state.Resolve(msg.orders, msg.err)
		s.refresh()
		return s, nil
	case tea.KeyMsg:
		var cmd tea.Cmd
		s.viewport, cmd = s.viewport.Update(msg)
		return s, cmd
	}
	return s, nil
}

// SetSize resizes the scroll area.
func (s *OrdersScreen) SetSize(w, h int) {
	s.width, s.height = w, h
	s.viewport.Width = w
	s.viewport.Height = max(1, h)
	s.refresh()
}

// CapturesInput is always false.
func (s *OrdersScreen) CapturesInput() bool { return false }

func (s *OrdersScreen) refresh() {
	s.viewport.SetContent(s.render())
}

func (s *OrdersScreen) render() string {
	st := s.env.Styles
	switch s.state.Status {
	case query.StatusLoading:
		return st.Muted.Render("Loading...")
	case query.StatusError:
		return st.Error.Render("Error loading orders")
	}
	if len(s.state.Data) == 0 {
		return st.Title.Render("No Orders Yet") + "\n" +
			st.Body.Render("Your order history will appear here once you make a purchase.")
	}

	var sb strings.Builder
	sb.WriteString(st.Title.Render("Order History"))
	sb.WriteString("\n")
	for _, o := range s.state.Data {
		var card strings.Builder
		card.WriteString(st.Bold.Render("Order #" + o.ID))
		card.WriteString("  ")
		card.WriteString(st.StatusBadge(o.Status))
		card.WriteString("\n")
		card.WriteString(st.Muted.Render(o.CreatedAt.Format("2006-01-02")))
		card.WriteString("\n")
		for _, it := range o.Items {
			card.WriteString(fmt.Sprintf("  %s  Quantity: %d × %s  Subtotal: %s\n",
				it.Product.Name, it.Quantity,
				types.FormatMoney(it.Product.Price),
				types.FormatMoney(it.Subtotal())))
		}
		card.WriteString(st.Bold.Render("Total: " + types.FormatMoney(o.Total)))
		if !o.Consistent() {
			card.WriteString(st.Warning.Render(fmt.Sprintf("  (items sum to %s)", types.FormatMoney(o.ComputedTotal()))))
		}
		sb.WriteString(st.Card.Render(card.String()))
		sb.WriteString("\n")
	}
	return sb.String()
}

// View renders the scrolled order list.
func (s *OrdersScreen) View() string {
	return s.viewport.View()
}
