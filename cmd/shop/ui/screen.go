package ui

import (
	"context"
	"strings"
	"time"

	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/session"
	"storefront/internal/shop"

	tea "github.com/charmbracelet/bubbletea"
)

// Routes
const (
	RouteHome     = "/"
	RouteProduct  = "/products/:id"
	RouteCart     = "/cart"
	RouteLogin    = "/login"
	RouteRegister = "/register"
	RouteProfile  = "/profile"
	RouteOrders   = "/orders"
)

// ProductPath returns the details path for a product id.
func ProductPath(id string) string {
	return "/products/" + id
}

// matchRoute resolves a concrete path to its route pattern and parameter.
func matchRoute(path string) (route, param string, ok bool) {
	switch path {
	case RouteHome, RouteCart, RouteLogin, RouteRegister, RouteProfile, RouteOrders:
		return path, "", true
	}
	if id, found := strings.CutPrefix(path, "/products/"); found && id != "" && !strings.Contains(id, "/") {
		return RouteProduct, id, true
	}
	return "", "", false
}

// requiresAuth lists routes that only make sense with a session.
func requiresAuth(route string) bool {
	return route == RouteProfile || route == RouteOrders
}

// Env is what every screen needs. It lives as long as the shell.
type Env struct {
	Config  *config.Config
	Service *shop.Service
	Cart    *cart.Cart
	Styles  Styles

	// Context bounds every API call; defaults to context.Background.
	Context context.Context

	// After delivers msg once d has elapsed. Defaults to tea.Tick.
	After func(d time.Duration, msg tea.Msg) tea.Cmd
}

func (e *Env) after(d time.Duration, msg tea.Msg) tea.Cmd {
	if e.After != nil {
		return e.After(d, msg)
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

func (e *Env) ctx() context.Context {
	if e.Context != nil {
		return e.Context
	}
	return context.Background()
}

func (e *Env) session() *session.Session {
	return e.Service.Session()
}

// Screen is one routed page.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View() string
	SetSize(w, h int)
	// CapturesInput reports whether keys should go to the screen instead of
	// the shell's navigation bindings.
	CapturesInput() bool
}

// NavigateMsg asks the shell to show Path.
type NavigateMsg struct{ Path string }

// BackMsg asks the shell to return to the previous route.
type BackMsg struct{}

// SessionMsg delivers a session change to the shell.
type SessionMsg struct{ Event session.Event }

type toastKind int

const (
	toastSuccess toastKind = iota
	toastError
	toastInfo
)

// ToastMsg shows a transient notification.
type ToastMsg struct {
	Kind  toastKind
	Title string
	Body  string
}

type toastExpiredMsg struct{ id int }

func navigate(path string) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Path: path} }
}

func back() tea.Cmd {
	return func() tea.Msg { return BackMsg{} }
}

func toast(kind toastKind, title, body string) tea.Cmd {
	return func() tea.Msg { return ToastMsg{Kind: kind, Title: title, Body: body} }
}

// result tags a response with the screen instance that asked for it so the
// shell can drop responses for screens that are gone.
type result struct {
	mount int
	seq   int
}

func (r result) mountID() int { return r.mount }

type mounted interface{ mountID() int }
