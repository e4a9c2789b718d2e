package ui

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/api"
	"storefront/internal/apitest"
	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/session"
	"storefront/internal/shop"
	"storefront/internal/store"
	"storefront/internal/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness runs a shell against the fake API. Commands are executed
// synchronously; timed messages are parked in scheduled instead of firing.
type harness struct {
	t   *testing.T
	srv *apitest.Server
	env *Env

	mu        sync.Mutex
	events    []session.Event
	scheduled []tea.Msg
}

func newHarness(t *testing.T, token string) *harness {
	t.Helper()
	h := &harness{t: t, srv: apitest.New(t)}
	h.srv.AddUser(types.User{ID: "u1", Name: "Ada", Email: "a@b.com"}, "x", "T1")

	cfg := config.DefaultConfig()
	cfg.API.BaseURL = h.srv.URL()

	sess, err := session.New(context.Background(), store.NewMemoryStore(token))
	require.NoError(t, err)
	t.Cleanup(sess.Subscribe(func(ev session.Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, ev)
	}))

	svc, err := shop.Open(cfg, sess, api.WithHTTPClient(h.srv.Client()))
	require.NoError(t, err)

	h.env = &Env{
		Config:  cfg,
		Service: svc,
		Cart:    cart.New(),
		Styles:  NewStyles(LightTheme()),
		After: func(_ time.Duration, msg tea.Msg) tea.Cmd {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.scheduled = append(h.scheduled, msg)
			return nil
		},
	}
	return h
}

func (h *harness) shell(start string) *Shell {
	m := NewShell(h.env, start)
	h.drive(m, m.Init())
	return m
}

// drive executes cmd and every command produced while handling its messages.
func (h *harness) drive(m *Shell, cmd tea.Cmd) {
	h.t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(h.t, steps, 500, "command loop did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if msg == nil {
			continue
		}
		_, next := m.Update(msg)
		queue = append(queue, next)
	}
}

func (h *harness) send(m *Shell, msgs ...tea.Msg) {
	h.t.Helper()
	for _, msg := range msgs {
		_, cmd := m.Update(msg)
		h.drive(m, cmd)
	}
}

// deliverSession forwards recorded session events the way Run does.
func (h *harness) deliverSession(m *Shell) {
	h.mu.Lock()
	events := h.events
	h.events = nil
	h.mu.Unlock()
	for _, ev := range events {
		h.send(m, SessionMsg{Event: ev})
	}
}

func (h *harness) takeScheduled() []tea.Msg {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.scheduled
	h.scheduled = nil
	return out
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func count(paths []string, want string) int {
	n := 0
	for _, p := range paths {
		if p == want {
			n++
		}
	}
	return n
}

func TestStatusColor(t *testing.T) {
	cases := map[types.OrderStatus]string{
		types.StatusPending:    "yellow",
		types.StatusProcessing: "blue",
		types.StatusShipped:    "purple",
		types.StatusDelivered:  "green",
		"on-hold":              "gray",
		"":                     "gray",
	}
	for status, want := range cases {
		assert.Equal(t, want, StatusColorName(status), "status %q", status)
	}
	assert.Equal(t, StatusPurple, StatusColor(types.StatusShipped))
	assert.Equal(t, StatusGray, StatusColor("on-hold"))
}

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("STOREFRONT_DARK_MODE", "1")
	assert.True(t, DetectTheme().IsDark)

	t.Setenv("STOREFRONT_DARK_MODE", "")
	assert.False(t, DetectTheme().IsDark)

	t.Setenv("COLORFGBG", "15;0")
	assert.True(t, DetectTheme().IsDark)

	assert.True(t, ThemeFor("dark").IsDark)
	assert.False(t, ThemeFor("light").IsDark)
}

func TestMatchRoute(t *testing.T) {
	route, param, ok := matchRoute("/products/p-shirt")
	require.True(t, ok)
	assert.Equal(t, RouteProduct, route)
	assert.Equal(t, "p-shirt", param)

	for _, p := range []string{"/", "/cart", "/login", "/register", "/profile", "/orders"} {
		route, _, ok := matchRoute(p)
		assert.True(t, ok, p)
		assert.Equal(t, p, route)
	}
	for _, p := range []string{"/products/", "/products/a/b", "/admin"} {
		_, _, ok := matchRoute(p)
		assert.False(t, ok, p)
	}
}

func TestLogin_NavigatesHomeAndAuthenticatesRequests(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(RouteLogin)
	assert.Contains(t, m.View(), "Sign Up")

	h.send(m, runes("a@b.com"), key(tea.KeyEnter), runes("x"), key(tea.KeyEnter))
	h.deliverSession(m)

	assert.Equal(t, RouteHome, m.Path())
	assert.Equal(t, "T1", h.env.Service.Session().Token())
	view := m.View()
	assert.Contains(t, view, "Logout")
	assert.Contains(t, view, "Linen Shirt")

	h.send(m, runes("p"))
	assert.Equal(t, RouteProfile, m.Path())
	me := h.srv.RequestsTo(http.MethodGet, "/users/me")
	require.Len(t, me, 1)
	assert.Equal(t, "Bearer T1", me[0].Authorization)
	assert.Contains(t, m.View(), "Ada")
}

func TestLogin_FailureKeepsFormEditable(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(RouteLogin)

	h.send(m, runes("a@b.com"), key(tea.KeyEnter), runes("nope"), key(tea.KeyEnter))
	h.deliverSession(m)

	assert.Equal(t, RouteLogin, m.Path())
	assert.Equal(t, 1, count(m.navigations, RouteLogin), "already on login, no extra navigation")
	login := m.Screen().(*LoginScreen)
	assert.False(t, login.Submitting())
	assert.Empty(t, m.toasts, "login failure shows no toast")
	assert.Empty(t, h.env.Service.Session().Token())
}

func TestUnauthorized_NavigatesToLoginExactlyOnce(t *testing.T) {
	h := newHarness(t, "stale")
	m := h.shell(RouteOrders)
	require.Equal(t, RouteOrders, m.Path())

	h.deliverSession(m)
	assert.Equal(t, RouteLogin, m.Path())
	assert.Empty(t, h.env.Service.Session().Token())

	// A second rejection arriving late must not navigate again.
	h.send(m, SessionMsg{Event: session.Event{Kind: session.EventInvalidated}})
	assert.Equal(t, 1, count(m.navigations, RouteLogin))
	assert.Empty(t, m.toasts, "no screen-local error for a 401")
}

func TestUnauthorized_ProfileShowsNoError(t *testing.T) {
	h := newHarness(t, "stale")
	m := h.shell(RouteProfile)

	assert.Empty(t, m.toasts)
	h.deliverSession(m)
	assert.Equal(t, RouteLogin, m.Path())
	assert.Equal(t, []string{RouteProfile, RouteLogin}, m.navigations)
}

func TestHome_SearchIsDebounced(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(RouteHome)
	require.Len(t, h.srv.RequestsTo(http.MethodGet, "/products"), 1)

	h.send(m, runes("/"))
	require.True(t, m.Screen().CapturesInput())
	for _, r := range "shirt" {
		h.send(m, runes(string(r)))
	}
	assert.Len(t, h.srv.RequestsTo(http.MethodGet, "/products"), 1, "typing alone does not fetch")

	settles := h.takeScheduled()
	require.Len(t, settles, 5)
	h.send(m, settles...)

	reqs := h.srv.RequestsTo(http.MethodGet, "/products")
	require.Len(t, reqs, 2, "only the last keystroke settles into a fetch")
	assert.Equal(t, "shirt", reqs[1].Query.Get("search"))
	_, hasCategory := reqs[1].Query["category"]
	assert.False(t, hasCategory)

	view := m.View()
	assert.Contains(t, view, "Linen Shirt")
	assert.Contains(t, view, "Shirt-Print Mug")
	assert.NotContains(t, view, "Wool Socks")
}

func TestHome_CategoryChangeKeepsPendingSearch(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(RouteHome)

	h.send(m, runes("/"))
	for _, r := range "shirt" {
		h.send(m, runes(string(r)))
	}
	h.send(m, key(tea.KeyEsc))
	h.send(m, runes("]"), runes("]"))

	home := m.Screen().(*HomeScreen)
	assert.Equal(t, types.ProductFilter{Search: "shirt", Category: "clothing"}, home.Filter())

	reqs := h.srv.RequestsTo(http.MethodGet, "/products")
	last := reqs[len(reqs)-1]
	assert.Equal(t, "shirt", last.Query.Get("search"))
	assert.Equal(t, "clothing", last.Query.Get("category"))

	// The settle ticks from typing arrive late and are superseded.
	before := len(reqs)
	h.send(m, h.takeScheduled()...)
	assert.Len(t, h.srv.RequestsTo(http.MethodGet, "/products"), before)
	assert.Equal(t, types.ProductFilter{Search: "shirt", Category: "clothing"}, home.Filter())

	view := m.View()
	assert.Contains(t, view, "Linen Shirt")
	assert.NotContains(t, view, "Shirt-Print Mug")
}

func TestHome_CategoryAndOpenProduct(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(RouteHome)

	h.send(m, runes("]"), runes("]"))
	home := m.Screen().(*HomeScreen)
	assert.Equal(t, types.ProductFilter{Category: "clothing"}, home.Filter())
	reqs := h.srv.RequestsTo(http.MethodGet, "/products")
	assert.Equal(t, "clothing", reqs[len(reqs)-1].Query.Get("category"))
	assert.NotContains(t, m.View(), "Shirt-Print Mug")

	h.send(m, runes("j"), key(tea.KeyEnter))
	assert.Equal(t, ProductPath("p-socks"), m.Path())
	assert.Contains(t, m.View(), "Wool Socks")

	h.send(m, key(tea.KeyEsc))
	assert.Equal(t, RouteHome, m.Path())
}

func TestProduct_QuantityBoundsAndAddToCart(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(ProductPath("p-socks"))
	screen := m.Screen().(*ProductScreen)

	h.send(m, runes("-"))
	assert.Equal(t, 1, screen.Quantity(), "never below 1")
	h.send(m, runes("+"), runes("+"), runes("+"))
	assert.Equal(t, 2, screen.Quantity(), "never above stock")

	h.send(m, key(tea.KeyEnter))
	assert.Equal(t, 2, h.env.Cart.Quantity("p-socks"))
	require.Len(t, m.toasts, 1)
	assert.Equal(t, "Added to cart", m.toasts[0].Title)
	assert.Equal(t, "2 Wool Socks added to cart", m.toasts[0].Body)
	assert.Contains(t, m.View(), "Cart (2)")

	h.send(m, key(tea.KeyEnter))
	assert.Equal(t, 2, h.env.Cart.Quantity("p-socks"))
	require.Len(t, m.toasts, 2)
	assert.Equal(t, toastError, m.toasts[1].Kind)

	// Toasts expire.
	h.send(m, h.takeScheduled()...)
	assert.Empty(t, m.toasts)
}

func TestProduct_OutOfStockCannotBeAdded(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(ProductPath("p-mug"))

	assert.Contains(t, m.View(), "Out of Stock")
	h.send(m, key(tea.KeyEnter))
	assert.Equal(t, 0, h.env.Cart.Len())
	assert.Empty(t, m.toasts)
}

func TestProduct_NotFound(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(ProductPath("missing"))
	assert.Contains(t, m.View(), "Product not found")
}

func TestCart_EditAndTotal(t *testing.T) {
	h := newHarness(t, "")
	p := apitest.Products()
	require.NoError(t, h.env.Cart.Add(p[0], 2))
	require.NoError(t, h.env.Cart.Add(p[1], 1))
	m := h.shell(RouteCart)

	assert.Contains(t, m.View(), "Total: $25.50")

	h.send(m, runes("j"), runes("+"), runes("+"))
	assert.Equal(t, 2, h.env.Cart.Quantity("p-socks"), "plus stops at stock")

	h.send(m, runes("k"), runes("x"))
	assert.Equal(t, 1, h.env.Cart.Len())
	assert.Contains(t, m.View(), "Total: $11.00")

	h.send(m, key(tea.KeyEnter))
	require.Len(t, m.toasts, 1)
	assert.Equal(t, "Checkout is not available yet", m.toasts[0].Body)
	assert.Equal(t, 1, h.env.Cart.Len(), "checkout leaves the cart alone")
	assert.Empty(t, h.srv.Requests(), "checkout sends nothing")
}

func TestCart_SurvivesNavigation(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.env.Cart.Add(apitest.Products()[0], 1))
	m := h.shell(RouteCart)

	h.send(m, runes("h"), runes("c"))
	assert.Equal(t, RouteCart, m.Path())
	assert.Contains(t, m.View(), "Linen Shirt")
}

func TestCart_EmptyState(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(RouteCart)
	assert.Contains(t, m.View(), "Your Cart is Empty")

	h.send(m, key(tea.KeyEnter))
	assert.Equal(t, RouteHome, m.Path())
}

func TestRegister_ToastThenHome(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(RouteRegister)

	h.send(m, runes("New"), key(tea.KeyTab), runes("n@b.com"), key(tea.KeyTab), runes("pw"), key(tea.KeyEnter))

	assert.Equal(t, RouteHome, m.Path())
	assert.Equal(t, "R1", h.env.Service.Session().Token())
	require.Len(t, m.toasts, 1)
	assert.Equal(t, "Registration successful", m.toasts[0].Title)
}

func TestRegister_FailureToast(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(RouteRegister)

	h.send(m, runes("Dup"), key(tea.KeyTab), runes("a@b.com"), key(tea.KeyTab), runes("pw"), key(tea.KeyEnter))

	assert.Equal(t, RouteRegister, m.Path())
	require.Len(t, m.toasts, 1)
	assert.Equal(t, toastError, m.toasts[0].Kind)
	assert.Equal(t, "Registration failed", m.toasts[0].Title)
}

func TestRegister_UnauthorizedLeavesNavigationToShell(t *testing.T) {
	h := newHarness(t, "")
	h.srv.Fail(http.MethodPost, "/auth/register", http.StatusUnauthorized)
	m := h.shell(RouteRegister)

	h.send(m, runes("Eve"), key(tea.KeyTab), runes("e@f.com"), key(tea.KeyTab), runes("pw"), key(tea.KeyEnter))
	assert.Empty(t, m.toasts, "no screen-local error for a 401")
	assert.Equal(t, RouteRegister, m.Path())

	h.deliverSession(m)
	assert.Equal(t, RouteLogin, m.Path())
	assert.Empty(t, m.toasts)
}

func TestProfile_EditAndSave(t *testing.T) {
	h := newHarness(t, "T1")
	m := h.shell(RouteProfile)
	assert.Contains(t, m.View(), "a@b.com")

	h.send(m, runes("e"))
	profile := m.Screen().(*ProfileScreen)
	require.True(t, profile.Editing())

	h.send(m, runes(" L"), key(tea.KeyTab), key(tea.KeyEnter))
	assert.False(t, profile.Editing())
	assert.Contains(t, m.View(), "Ada L")

	put := h.srv.RequestsTo(http.MethodPut, "/users/me")
	require.Len(t, put, 1)
	assert.JSONEq(t, `{"name":"Ada L","email":"a@b.com"}`, string(put[0].Body))
}

func TestProfile_SaveFailureStaysEditing(t *testing.T) {
	h := newHarness(t, "T1")
	m := h.shell(RouteProfile)
	h.srv.Fail(http.MethodPut, "/users/me", http.StatusInternalServerError)

	h.send(m, runes("e"), runes(" L"), key(tea.KeyCtrlS))

	profile := m.Screen().(*ProfileScreen)
	assert.True(t, profile.Editing())
	assert.Equal(t, "Ada L", profile.form.value(0), "typed values are kept")
	assert.Equal(t, RouteProfile, m.Path())
}

func TestOrders_StatusBadges(t *testing.T) {
	h := newHarness(t, "T1")
	p := apitest.Products()
	h.srv.SetOrders("u1", []types.Order{
		apitest.Order("o1", "u1", types.StatusShipped,
			types.CartItem{Product: p[0], Quantity: 2},
			types.CartItem{Product: p[1], Quantity: 1}),
		apitest.Order("o2", "u1", "on-hold", types.CartItem{Product: p[1], Quantity: 1}),
	})
	m := h.shell(RouteOrders)

	view := m.View()
	assert.Contains(t, view, "Order #o1")
	assert.Contains(t, view, "shipped")
	assert.Contains(t, view, "on-hold")
	assert.Contains(t, view, "Total: $25.50")
}

func TestOrders_Empty(t *testing.T) {
	h := newHarness(t, "T1")
	m := h.shell(RouteOrders)
	assert.Contains(t, m.View(), "No Orders Yet")
}

func TestShell_LogoutGoesToLogin(t *testing.T) {
	h := newHarness(t, "T1")
	m := h.shell(RouteHome)
	assert.Contains(t, m.View(), "Orders")

	h.send(m, runes("l"))
	h.deliverSession(m)

	assert.Empty(t, h.env.Service.Session().Token())
	assert.Equal(t, RouteLogin, m.Path())
	assert.Contains(t, m.View(), "Sign Up")
}

func TestShell_AnonymousProtectedKeysGoToLogin(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(RouteHome)

	h.send(m, runes("o"))
	assert.Equal(t, RouteLogin, m.Path())
	assert.Empty(t, h.srv.RequestsTo(http.MethodGet, "/orders"))
}

func TestShell_ReloadedLogoutLeavesProtectedRoute(t *testing.T) {
	h := newHarness(t, "T1")
	m := h.shell(RouteOrders)

	h.send(m, SessionMsg{Event: session.Event{Kind: session.EventReloaded, Authenticated: false}})
	assert.Equal(t, RouteLogin, m.Path())

	h.send(m, NavigateMsg{Path: RouteHome})
	h.send(m, SessionMsg{Event: session.Event{Kind: session.EventReloaded, Authenticated: false}})
	assert.Equal(t, RouteHome, m.Path(), "public routes stay")
}

func TestShell_DropsResultsForUnmountedScreens(t *testing.T) {
	h := newHarness(t, "")
	m := NewShell(h.env, ProductPath("p-shirt"))
	stale := m.Init()

	h.send(m, key(tea.KeyEsc))
	require.Equal(t, RouteHome, m.Path())

	h.drive(m, stale)
	assert.Equal(t, RouteHome, m.Path())
	assert.NotContains(t, m.View(), "Product Details")
}

func TestShell_UnknownPathToast(t *testing.T) {
	h := newHarness(t, "")
	m := h.shell(RouteHome)

	h.send(m, NavigateMsg{Path: "/admin"})
	assert.Equal(t, RouteHome, m.Path())
	require.Len(t, m.toasts, 1)
	assert.True(t, strings.Contains(m.toasts[0].Body, "/admin"))
}
