package ui

import (
	"strings"

	"storefront/internal/api"
	"storefront/internal/logging"
	"storefront/internal/types"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type loginDoneMsg struct {
	result
	err error
}

type registerDoneMsg struct {
	result
	err error
}

// form is a vertical list of inputs with tab focus cycling.
type form struct {
	inputs []textinput.Model
	labels []string
	focus  int
}

func newForm(labels ...string) form {
	f := form{labels: labels}
	for _, l := range labels {
		ti := textinput.New()
		ti.Cursor.SetMode(cursor.CursorStatic)
		ti.Prompt = ""
		ti.CharLimit = 254
		ti.Width = 40
		if strings.EqualFold(l, "password") {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.inputs = append(f.inputs, ti)
	}
	f.inputs[0].Focus()
	return f
}

func (f *form) value(i int) string { return f.inputs[i].Value() }

func (f *form) setValue(i int, v string) { f.inputs[i].SetValue(v) }

func (f *form) last() bool { return f.focus == len(f.inputs)-1 }

func (f *form) move(delta int) tea.Cmd {
	f.inputs[f.focus].Blur()
	n := len(f.inputs)
	f.focus = ((f.focus+delta)%n + n) % n
	return f.inputs[f.focus].Focus()
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *form) view(st Styles) string {
	var sb strings.Builder
	for i, in := range f.inputs {
		sb.WriteString(st.Label.Render(f.labels[i]))
		sb.WriteString(" ")
		sb.WriteString(in.View())
		sb.WriteString("\n")
	}
	return sb.String()
}

// LoginScreen signs in with email and password.
type LoginScreen struct {
	env        *Env
	mount      int
	form       form
	submitting bool
	width      int
	height     int
}

// NewLoginScreen creates the sign-in form.
func NewLoginScreen(env *Env, mount int) *LoginScreen {
	return &LoginScreen{env: env, mount: mount, form: newForm("Email", "Password")}
}

// Init does nothing; the form is ready on mount.
func (s *LoginScreen) Init() tea.Cmd { return nil }

// Submitting reports whether a login call is in flight.
func (s *LoginScreen) Submitting() bool { return s.submitting }

// Update handles typing, submit and the login result.
func (s *LoginScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loginDoneMsg:
		s.submitting = false
		if msg.err != nil {
			// No field-level error; the form stays editable.
			logging.Get(logging.CategoryUI).Warn("Login failed: %v", msg.err)
			return s, nil
		}
		return s, navigate(RouteHome)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			return s, back()
		case tea.KeyCtrlR:
			return s, navigate(RouteRegister)
		case tea.KeyTab, tea.KeyDown:
			return s, s.form.move(1)
		case tea.KeyShiftTab, tea.KeyUp:
			return s, s.form.move(-1)
		case tea.KeyEnter:
			if !s.form.last() {
				return s, s.form.move(1)
			}
			return s, s.submit()
		}
		return s, s.form.update(msg)
	}
	return s, nil
}

func (s *LoginScreen) submit() tea.Cmd {
	if s.submitting {
		return nil
	}
	s.submitting = true
	cred := types.Credentials{Email: s.form.value(0), Password: s.form.value(1)}
	tag := result{mount: s.mount}
	svc, ctx := s.env.Service, s.env.ctx()
	return func() tea.Msg {
		return loginDoneMsg{result: tag, err: svc.Login(ctx, cred)}
	}
}

// SetSize stores the viewport size.
func (s *LoginScreen) SetSize(w, h int) { s.width, s.height = w, h }

// CapturesInput is always true.
func (s *LoginScreen) CapturesInput() bool { return true }

// View renders the form.
func (s *LoginScreen) View() string {
	st := s.env.Styles
	var sb strings.Builder
	sb.WriteString(st.Title.Render("Sign In"))
	sb.WriteString("\n")
	sb.WriteString(s.form.view(st))
	sb.WriteString("\n")
	if s.submitting {
		sb.WriteString(st.Disabled.Render("Signing in..."))
	} else {
		sb.WriteString(st.Button.Render("Sign in"))
	}
	sb.WriteString("\n\n")
	sb.WriteString(st.Muted.Render("Don't have an account? ctrl+r to sign up"))
	return sb.String()
}

// RegisterScreen creates an account.
type RegisterScreen struct {
	env        *Env
	mount      int
	form       form
	submitting bool
	width      int
	height     int
}

// NewRegisterScreen creates the registration form.
func NewRegisterScreen(env *Env, mount int) *RegisterScreen {
	return &RegisterScreen{env: env, mount: mount, form: newForm("Name", "Email", "Password")}
}

// Init does nothing; the form is ready on mount.
func (s *RegisterScreen) Init() tea.Cmd { return nil }

// Update handles typing, submit and the registration result.
func (s *RegisterScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case registerDoneMsg:
		s.submitting = false
		if msg.err != nil {
			logging.Get(logging.CategoryUI).Warn("Registration failed: %v", msg.err)
			if api.IsUnauthenticated(msg.err) {
				return s, nil
			}
			return s, toast(toastError, "Registration failed", "Please try again")
		}
		return s, tea.Batch(
			toast(toastSuccess, "Registration successful", ""),
			navigate(RouteHome),
		)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			return s, back()
		case tea.KeyCtrlL:
			return s, navigate(RouteLogin)
		case tea.KeyTab, tea.KeyDown:
			return s, s.form.move(1)
		case tea.KeyShiftTab, tea.KeyUp:
			return s, s.form.move(-1)
		case tea.KeyEnter:
			if !s.form.last() {
				return s, s.form.move(1)
			}
			return s, s.submit()
		}
		return s, s.form.update(msg)
	}
	return s, nil
}

func (s *RegisterScreen) submit() tea.Cmd {
	if s.submitting {
		return nil
	}
	s.submitting = true
	reg := types.Registration{Name: s.form.value(0), Email: s.form.value(1), Password: s.form.value(2)}
	tag := result{mount: s.mount}
	svc, ctx := s.env.Service, s.env.ctx()
	return func() tea.Msg {
		return registerDoneMsg{result: tag, err: svc.Register(ctx, reg)}
	}
}

// SetSize stores the viewport size.
func (s *RegisterScreen) SetSize(w, h int) { s.width, s.height = w, h }

// CapturesInput is always true.
func (s *RegisterScreen) CapturesInput() bool { return true }

// View renders the form.
func (s *RegisterScreen) View() string {
	st := s.env.Styles
	var sb strings.Builder
	sb.WriteString(st.Title.Render("Create an Account"))
	sb.WriteString("\n")
	sb.WriteString(s.form.view(st))
	sb.WriteString("\n")
	if s.submitting {
		sb.WriteString(st.Disabled.Render("Registering..."))
	} else {
		sb.WriteString(st.Button.Render("Register"))
	}
	sb.WriteString("\n\n")
	sb.WriteString(st.Muted.Render("Already have an account? ctrl+l to log in"))
	return sb.String()
}
