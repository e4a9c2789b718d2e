package ui

import (
	"fmt"
	"strings"

	"storefront/internal/api"
	"storefront/internal/logging"
	"storefront/internal/query"
	"storefront/internal/shop"
	"storefront/internal/types"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Category is one entry of the category selector.
type Category struct {
	Value string
	Label string
}

// Categories offered by the listing. The empty value means all categories.
var Categories = []Category{
	{Value: "", Label: "All Categories"},
	{Value: "electronics", Label: "Electronics"},
	{Value: "clothing", Label: "Clothing"},
	{Value: "books", Label: "Books"},
	{Value: "home", Label: "Home & Kitchen"},
}

type productsMsg struct {
	result
	products []types.Product
	err      error
}

type searchSettledMsg struct{ result }

// HomeScreen lists products with a debounced search box and a category selector.
type HomeScreen struct {
	env   *Env
	mount int

	search    textinput.Model
	searching bool
	category  int
	filter    types.ProductFilter

	// seq increases on every keystroke and fetch; responses and settle
	// ticks carrying an older seq are superseded.
	seq    int
	state  query.State[[]types.Product]
	cursor int

	width  int
	height int
}

// NewHomeScreen creates the product listing.
func NewHomeScreen(env *Env, mount int) *HomeScreen {
	ti := textinput.New()
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.Placeholder = "Search products..."
	ti.Prompt = "/ "
	ti.CharLimit = 100
	ti.Width = 40
	return &HomeScreen{env: env, mount: mount, search: ti}
}

// Init fetches with the empty filter.
func (s *HomeScreen) Init() tea.Cmd {
	return s.fetch()
}

// Filter returns the filter of the last issued fetch.
func (s *HomeScreen) Filter() types.ProductFilter { return s.filter }

// fetch reads the search box as well, so a category change during the
// debounce window keeps the typed term.
func (s *HomeScreen) fetch() tea.Cmd {
	s.seq++
	s.filter.Search = s.search.Value()
	f := s.filter
	tag := result{mount: s.mount, seq: s.seq}
	s.state = query.Loading[[]types.Product](s.env.Service.Cache(), shop.ProductsKey(f))
	svc, ctx := s.env.Service, s.env.ctx()
	return func() tea.Msg {
		products, err := svc.Products(ctx, f)
		return productsMsg{result: tag, products: products, err: err}
	}
}

// Update handles keys and fetch results.
func (s *HomeScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case productsMsg:
		if msg.seq != s.seq {
			return s, nil
		}
		if msg.err != nil && !api.IsUnauthenticated(msg.err) {
			logging.Get(logging.CategoryUI).Warn("Product listing failed: %v", msg.err)
		}
		s.state = s.state.Resolve(msg.products, msg.err)
		if s.cursor >= len(s.state.Data) {
			s.cursor = max(0, len(s.state.Data)-1)
		}
		return s, nil

	case searchSettledMsg:
		if msg.seq != s.seq {
			return s, nil
		}
		return s, s.fetch()

	case tea.KeyMsg:
		if s.searching {
			return s.updateSearch(msg)
		}
		return s.updateList(msg)
	}
	return s, nil
}

func (s *HomeScreen) updateSearch(msg tea.KeyMsg) (Screen, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter, tea.KeyTab:
		s.searching = false
		s.search.Blur()
		return s, nil
	}
	before := s.search.Value()
	var cmd tea.Cmd
	s.search, cmd = s.search.Update(msg)
	if s.search.Value() == before {
		return s, cmd
	}
	s.seq++
	settle := s.env.after(s.env.Config.GetSearchDebounce(), searchSettledMsg{result{mount: s.mount, seq: s.seq}})
	return s, tea.Batch(cmd, settle)
}

func (s *HomeScreen) updateList(msg tea.KeyMsg) (Screen, tea.Cmd) {
	switch msg.String() {
	case "/":
		s.searching = true
		return s, s.search.Focus()
	case "left", "[":
		return s, s.selectCategory(s.category - 1)
	case "right", "]":
		return s, s.selectCategory(s.category + 1)
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.state.Data)-1 {
			s.cursor++
		}
	case "enter":
		if s.cursor < len(s.state.Data) {
			return s, navigate(ProductPath(s.state.Data[s.cursor].ID))
		}
	}
	return s, nil
}

func (s *HomeScreen) selectCategory(i int) tea.Cmd {
	n := len(Categories)
	s.category = (i%n + n) % n
	s.filter.Category = Categories[s.category].Value
	s.cursor = 0
	return s.fetch()
}

// SetSize stores the viewport size.
func (s *HomeScreen) SetSize(w, h int) {
	s.width, s.height = w, h
	s.search.Width = max(20, min(60, w-10))
}

// CapturesInput is true while the search box has focus.
func (s *HomeScreen) CapturesInput() bool { return s.searching }

// View renders the listing.
func (s *HomeScreen) View() string {
	st := s.env.Styles
	var sb strings.Builder

	sb.WriteString(st.Title.Render("Products"))
	sb.WriteString("\n")
	sb.WriteString(s.search.View())
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Category: ◂ %s ▸\n\n", st.Bold.Render(Categories[s.category].Label)))

	switch s.state.Status {
	case query.StatusLoading:
		sb.WriteString(st.Muted.Render("Loading..."))
	case query.StatusError:
		sb.WriteString(st.Error.Render("Failed to load products."))
	default:
		if len(s.state.Data) == 0 {
			sb.WriteString(st.Muted.Render("No products found."))
			break
		}
		for i, p := range s.state.Data {
			card := fmt.Sprintf("%s\n%s  %s\n%s",
				st.Bold.Render(p.Name),
				st.Price.Render(types.FormatMoney(p.Price)),
				st.StockBadge(p),
				st.Muted.Render(truncate(p.Description, max(20, s.width-10))))
			if i == s.cursor {
				sb.WriteString(st.Selected.Render(card))
			} else {
				sb.WriteString(st.Card.Render(card))
			}
			sb.WriteString("\n")
		}
		if s.state.Refreshing {
			sb.WriteString(st.Muted.Render("Refreshing..."))
		}
	}
	return sb.String()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
