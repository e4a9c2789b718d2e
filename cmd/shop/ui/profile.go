package ui

import (
	"strings"

	"storefront/internal/api"
	"storefront/internal/logging"
	"storefront/internal/query"
	"storefront/internal/shop"
	"storefront/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

type userMsg struct {
	result
	user types.User
	err  error
}

type profileSavedMsg struct {
	result
	user types.User
	err  error
}

// ProfileScreen shows the current user and toggles into an edit form.
type ProfileScreen struct {
	env   *Env
	mount int

	state   query.State[types.User]
	name    string
	email   string
	editing bool
	saving  bool
	form    form

	width  int
	height int
}

// NewProfileScreen creates the profile screen.
func NewProfileScreen(env *Env, mount int) *ProfileScreen {
	return &ProfileScreen{env: env, mount: mount, form: newForm("Name", "Email")}
}

// Init fetches the current user.
func (s *ProfileScreen) Init() tea.Cmd {
	s.state = query.Loading[types.User](s.env.Service.Cache(), shop.UserKey())
	if s.state.Status == query.StatusSuccess {
		s.seed(s.state.Data)
	}
	tag := result{mount: s.mount}
	svc, ctx := s.env.Service, s.env.ctx()
	return func() tea.Msg {
		u, err := svc.CurrentUser(ctx)
		return userMsg{result: tag, user: u, err: err}
	}
}

func (s *ProfileScreen) seed(u types.User) {
	s.name, s.email = u.Name, u.Email
}

// Editing reports whether the form is open.
func (s *ProfileScreen) Editing() bool { return s.editing }

// Update handles the edit toggle, save and fetch results.
func (s *ProfileScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case userMsg:
		if msg.err != nil && !api.IsUnauthenticated(msg.err) {
			logging.Get(logging.CategoryUI).Warn("Profile load failed: %v", msg.err)
		}
		s.state = s.state.Resolve(msg.user, msg.err)
		if msg.err == nil && !s.editing {
			s.seed(msg.user)
		}
		return s, nil

	case profileSavedMsg:
		s.saving = false
		if msg.err != nil {
			logging.Get(logging.CategoryUI).Warn("Failed to update profile: %v", msg.err)
			return s, nil
		}
		s.state = s.state.Resolve(msg.user, nil)
		s.seed(msg.user)
		s.editing = false
		return s, nil

	case tea.KeyMsg:
		if s.editing {
			return s.updateEditing(msg)
		}
		if s.state.Status == query.StatusSuccess && (msg.String() == "e" || msg.Type == tea.KeyEnter) {
			return s, s.startEditing()
		}
	}
	return s, nil
}

func (s *ProfileScreen) startEditing() tea.Cmd {
	s.editing = true
	s.form.setValue(0, s.name)
	s.form.setValue(1, s.email)
	if s.form.focus != 0 {
		return s.form.move(-s.form.focus)
	}
	return s.form.inputs[0].Focus()
}

func (s *ProfileScreen) updateEditing(msg tea.KeyMsg) (Screen, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		s.editing = false
		return s, nil
	case tea.KeyTab, tea.KeyDown:
		return s, s.form.move(1)
	case tea.KeyShiftTab, tea.KeyUp:
		return s, s.form.move(-1)
	case tea.KeyCtrlS:
		return s, s.save()
	case tea.KeyEnter:
		if !s.form.last() {
			return s, s.form.move(1)
		}
		return s, s.save()
	}
	return s, s.form.update(msg)
}

func (s *ProfileScreen) save() tea.Cmd {
	if s.saving {
		return nil
	}
	s.saving = true
	upd := types.ProfileUpdate{Name: s.form.value(0), Email: s.form.value(1)}
	tag := result{mount: s.mount}
	svc, ctx := s.env.Service, s.env.ctx()
	return func() tea.Msg {
		u, err := svc.UpdateProfile(ctx, upd)
		return profileSavedMsg{result: tag, user: u, err: err}
	}
}

// SetSize stores the viewport size.
func (s *ProfileScreen) SetSize(w, h int) { s.width, s.height = w, h }

// CapturesInput is true while editing.
func (s *ProfileScreen) CapturesInput() bool { return s.editing }

// View renders the profile card.
func (s *ProfileScreen) View() string {
	st := s.env.Styles
	switch s.state.Status {
	case query.StatusLoading:
		return st.Muted.Render("Loading...")
	case query.StatusError:
		return st.Body.Render("Please log in to view your profile")
	}

	var sb strings.Builder
	sb.WriteString(st.Title.Render("My Profile"))
	sb.WriteString("\n")
	if s.editing {
		sb.WriteString(s.form.view(st))
		sb.WriteString("\n")
		if s.saving {
			sb.WriteString(st.Disabled.Render("Saving..."))
		} else {
			sb.WriteString(st.Button.Render("Save Changes"))
		}
		sb.WriteString(st.Muted.Render("  enter save  esc cancel"))
		return sb.String()
	}

	card := st.Label.Render("Name") + " " + s.name + "\n" +
		st.Label.Render("Email") + " " + s.email
	sb.WriteString(st.Card.Render(card))
	sb.WriteString("\n\n")
	sb.WriteString(st.Button.Render("Edit Profile"))
	sb.WriteString(st.Muted.Render("  e"))
	return sb.String()
}
