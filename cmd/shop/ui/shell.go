package ui

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/logging"
	"storefront/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const chromeHeight = 4 // header with border plus footer

type activeToast struct {
	id int
	ToastMsg
}

// Shell owns the route, the mounted screen, the header and the toasts.
type Shell struct {
	env *Env

	path    string
	route   string
	history []string
	screen  Screen
	mount   int

	toasts   []activeToast
	toastSeq int

	// navigations records every path mounted, in order.
	navigations []string

	width  int
	height int
}

// NewShell creates a shell showing start.
func NewShell(env *Env, start string) *Shell {
	m := &Shell{env: env, width: 80, height: 24}
	if _, _, ok := matchRoute(start); !ok {
		start = RouteHome
	}
	m.mountPath(start)
	return m
}

// Path returns the current concrete path, e.g. /products/p1.
func (m *Shell) Path() string { return m.path }

// Screen returns the mounted screen.
func (m *Shell) Screen() Screen { return m.screen }

// Init starts the first screen.
func (m *Shell) Init() tea.Cmd {
	return m.screen.Init()
}

func (m *Shell) build(route, param string) Screen {
	switch route {
	case RouteProduct:
		return NewProductScreen(m.env, m.mount, param)
	case RouteCart:
		return NewCartScreen(m.env, m.mount)
	case RouteLogin:
		return NewLoginScreen(m.env, m.mount)
	case RouteRegister:
		return NewRegisterScreen(m.env, m.mount)
	case RouteProfile:
		return NewProfileScreen(m.env, m.mount)
	case RouteOrders:
		return NewOrdersScreen(m.env, m.mount)
	default:
		return NewHomeScreen(m.env, m.mount)
	}
}

func (m *Shell) mountPath(path string) {
	route, param, _ := matchRoute(path)
	m.mount++
	m.path, m.route = path, route
	m.screen = m.build(route, param)
	m.screen.SetSize(m.width, max(1, m.height-chromeHeight))
	m.navigations = append(m.navigations, path)
	logging.UIDebug("mounted %s", path)
}

func (m *Shell) navigate(path string) tea.Cmd {
	if _, _, ok := matchRoute(path); !ok {
		return toast(toastError, "Not found", path)
	}
	if path == m.path {
		return nil
	}
	m.history = append(m.history, m.path)
	m.mountPath(path)
	return m.screen.Init()
}

func (m *Shell) back() tea.Cmd {
	prev := RouteHome
	if n := len(m.history); n > 0 {
		prev = m.history[n-1]
		m.history = m.history[:n-1]
	}
	if prev == m.path {
		return nil
	}
	m.mountPath(prev)
	return m.screen.Init()
}

// Update routes messages to the shell or the mounted screen.
func (m *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.screen.SetSize(m.width, max(1, m.height-chromeHeight))
		return m, nil

	case NavigateMsg:
		return m, m.navigate(msg.Path)

	case BackMsg:
		return m, m.back()

	case SessionMsg:
		return m, m.onSession(msg.Event)

	case ToastMsg:
		m.toastSeq++
		m.toasts = append(m.toasts, activeToast{id: m.toastSeq, ToastMsg: msg})
		return m, m.env.after(m.env.Config.GetToastDuration(), toastExpiredMsg{id: m.toastSeq})

	case toastExpiredMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case mounted:
		if msg.mountID() != m.mount {
			logging.UIDebug("dropped %T for unmounted screen", msg)
			return m, nil
		}

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if !m.screen.CapturesInput() {
			if cmd, handled := m.handleKey(msg); handled {
				return m, cmd
			}
		}
	}

	var cmd tea.Cmd
	m.screen, cmd = m.screen.Update(msg)
	return m, cmd
}

func (m *Shell) authenticated() bool {
	return m.env.session().Authenticated()
}

func (m *Shell) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "h":
		return m.navigate(RouteHome), true
	case "c":
		return m.navigate(RouteCart), true
	case "o":
		if m.authenticated() {
			return m.navigate(RouteOrders), true
		}
		return m.navigate(RouteLogin), true
	case "p":
		if m.authenticated() {
			return m.navigate(RouteProfile), true
		}
		return m.navigate(RouteLogin), true
	case "l":
		if m.authenticated() {
			return m.logout(), true
		}
		return m.navigate(RouteLogin), true
	case "r":
		if !m.authenticated() {
			return m.navigate(RouteRegister), true
		}
	case "esc":
		return m.back(), true
	case "q":
		return tea.Quit, true
	}
	return nil, false
}

func (m *Shell) logout() tea.Cmd {
	svc, ctx := m.env.Service, m.env.ctx()
	return func() tea.Msg {
		if err := svc.Logout(ctx); err != nil {
			return ToastMsg{Kind: toastError, Title: "Logout failed", Body: err.Error()}
		}
		return nil
	}
}

// onSession reacts to session changes. Any number of 401s produce at most
// one navigation to the login screen.
func (m *Shell) onSession(ev session.Event) tea.Cmd {
	logging.UIDebug("session event %s", ev.Kind)
	switch ev.Kind {
	case session.EventInvalidated, session.EventLogout:
		if m.route == RouteLogin {
			return nil
		}
		return m.navigate(RouteLogin)
	case session.EventReloaded:
		if !ev.Authenticated && requiresAuth(m.route) {
			return m.navigate(RouteLogin)
		}
	}
	return nil
}

// View renders header, screen and footer.
func (m *Shell) View() string {
	content := m.env.Styles.Content.Render(m.screen.View())
	return lipgloss.JoinVertical(lipgloss.Left, m.header(), content, m.footer())
}

func (m *Shell) header() string {
	st := m.env.Styles
	link := func(key, label, route string) string {
		text := fmt.Sprintf("[%s] %s", key, label)
		if route == m.route {
			return st.NavLink.Bold(true).Foreground(st.Theme.Primary).Render(text)
		}
		return st.NavLink.Render(text)
	}

	parts := []string{st.Brand.Render(m.env.Config.Name)}
	parts = append(parts, link("c", fmt.Sprintf("Cart (%d)", m.env.Cart.Units()), RouteCart))
	if m.authenticated() {
		parts = append(parts,
			link("o", "Orders", RouteOrders),
			link("p", "Profile", RouteProfile),
			link("l", "Logout", ""))
	} else {
		parts = append(parts,
			link("l", "Login", RouteLogin),
			link("r", "Sign Up", RouteRegister))
	}
	return st.Header.Width(max(20, m.width)).Render(strings.Join(parts, ""))
}

func (m *Shell) footer() string {
	st := m.env.Styles
	var lines []string
	for _, t := range m.toasts {
		style := st.Toast
		switch t.Kind {
		case toastSuccess:
			style = style.BorderForeground(Success).Foreground(Success)
		case toastError:
			style = style.BorderForeground(Destructive).Foreground(Destructive)
		default:
			style = style.BorderForeground(Info).Foreground(Info)
		}
		text := t.Title
		if t.Body != "" {
			text += ": " + t.Body
		}
		lines = append(lines, style.Render(text))
	}
	help := "h home  esc back  q quit"
	if m.screen.CapturesInput() {
		help = "tab next field  esc back  ctrl+c quit"
	}
	lines = append(lines, st.Footer.Render(help))
	return strings.Join(lines, "\n")
}

// Run starts the interactive program and blocks until it exits. Session
// changes from any goroutine, including the file watcher, reach the shell
// as SessionMsg.
func Run(ctx context.Context, env *Env, start string) error {
	env.Context = ctx
	shell := NewShell(env, start)
	p := tea.NewProgram(shell, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := env.session().Subscribe(func(ev session.Event) {
		p.Send(SessionMsg{Event: ev})
	})
	defer unsubscribe()

	logging.UI("Starting interactive shell at %s", shell.Path())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interactive shell failed: %w", err)
	}
	return nil
}
