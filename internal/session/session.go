// Package session holds the process-wide bearer token.
//
// Every API call reads the token through Token, the shell subscribes to
// changes, and the persisted slot in internal/store is written through on
// every change. No other package touches the slot directly.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/internal/logging"
	"storefront/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

// EventKind describes why the session changed.
type EventKind int

const (
	EventLogin       EventKind = iota // token stored after login/registration
	EventLogout                       // explicit logout
	EventInvalidated                  // server reported authentication failure
	EventReloaded                     // slot changed outside this process
)

func (k EventKind) String() string {
	switch k {
	case EventLogin:
		return "login"
	case EventLogout:
		return "logout"
	case EventInvalidated:
		return "invalidated"
	case EventReloaded:
		return "reloaded"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is delivered to subscribers after the token changed.
type Event struct {
	Kind          EventKind
	Authenticated bool
	Reason        string
}

// Session is the single holder of the current token.
type Session struct {
	mu        sync.RWMutex
	store     store.TokenStore
	token     string
	listeners map[int]func(Event)
	nextID    int
	now       func() time.Time
}

// New loads the persisted token from st.
func New(ctx context.Context, st store.TokenStore) (*Session, error) {
	token, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	s := &Session{
		store:     st,
		token:     token,
		listeners: make(map[int]func(Event)),
		now:       time.Now,
	}
	logging.Session("Session loaded: authenticated=%v", s.Authenticated())
	return s, nil
}

// Token returns the raw token, or "" when logged out.
// Expired tokens are still returned; the server is the authority.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is present and not known to be expired.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	exp, ok := expiry(s.token)
	return !ok || s.now().Before(exp)
}

// ExpiresAt returns the exp claim when the token is a JWT carrying one.
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return time.Time{}, false
	}
	return expiry(s.token)
}

// Set stores a new token after login or registration.
func (s *Session) Set(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("refusing to store empty token")
	}
	if err := s.store.Save(ctx, token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	logging.Session("Session established")
	s.emit(Event{Kind: EventLogin, Authenticated: true})
	return nil
}

// Clear removes the token on explicit logout.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.drop(ctx); err != nil {
		return err
	}
	logging.Session("Session cleared by logout")
	s.emit(Event{Kind: EventLogout})
	return nil
}

// Invalidate removes the token after the server rejected it. Subscribers are
// notified even when no token was held, so anonymous access to a protected
// endpoint still reaches the login screen.
func (s *Session) Invalidate(ctx context.Context, reason string) {
	if err := s.drop(ctx); err != nil {
		logging.Get(logging.CategorySession).Error("Failed to clear persisted token: %v", err)
	}
	logging.Session("Session invalidated: %s", reason)
	s.emit(Event{Kind: EventInvalidated, Reason: reason})
}

// Reload re-reads the persisted slot and notifies subscribers if it changed.
func (s *Session) Reload(ctx context.Context) error {
	token, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload session: %w", err)
	}
	s.mu.Lock()
	changed := token != s.token
	s.token = token
	s.mu.Unlock()

	if changed {
		logging.SessionDebug("Session slot changed externally: authenticated=%v", token != "")
		s.emit(Event{Kind: EventReloaded, Authenticated: s.Authenticated()})
	}
	return nil
}

// Subscribe registers fn for every subsequent change. The returned function
// removes it again.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Store returns the backing slot.
func (s *Session) Store() store.TokenStore {
	return s.store
}

func (s *Session) drop(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return s.store.Delete(ctx)
}

func (s *Session) emit(ev Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// expiry reads the exp claim without verifying the signature; the client has
// no key and only uses it to hide an obviously dead session.
func expiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
