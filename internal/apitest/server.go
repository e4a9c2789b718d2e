// Package apitest runs an in-process fake of the storefront API for tests.
// It serves the same routes under /api, records every request, and can be
// told to fail a route with a given status.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Request is one recorded call.
type Request struct {
	Method        string
	Path          string // without the /api prefix
	Query         url.Values
	Authorization string
	ContentType   string
	RequestID     string
	Body          []byte
}

type account struct {
	user     types.User
	password string
	token    string
}

// Server is a fake storefront API.
type Server struct {
	srv *httptest.Server

	mu         sync.Mutex
	products   []types.Product
	accounts   map[string]*account // by email
	orders     map[string][]types.Order
	failures   map[string]int
	requests   []Request
	tokenSeq   int
	tokenStyle string
}

// New starts a server seeded with Fixtures and closes it on test cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts: make(map[string]*account),
		orders:   make(map[string][]types.Order),
		failures: make(map[string]int),
	}
	s.products = Products()
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the API base address including /api.
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// Client returns the server's http.Client.
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// AddUser registers an account that can log in with email/password and
// receives token on login.
func (s *Server) AddUser(u types.User, password, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[u.Email] = &account{user: u, password: password, token: token}
}

// SetOrders replaces the order history of userID.
func (s *Server) SetOrders(userID string, orders []types.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[userID] = orders
}

// SetProducts replaces the catalog.
func (s *Server) SetProducts(p []types.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = p
}

// RegisterTokenAtTopLevel makes /auth/register answer {token} instead of {data:{token}}.
func (s *Server) RegisterTokenAtTopLevel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenStyle = "top"
}

// Fail makes METHOD path answer status until Heal is called.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Heal removes every configured failure.
func (s *Server) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]int)
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the recorded calls to METHOD path.
func (s *Server) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", s.listProducts)
		r.Get("/products/{id}", s.getProduct)
		r.Post("/auth/login", s.login)
		r.Post("/auth/register", s.register)
		r.Get("/users/me", s.me)
		r.Put("/users/me", s.updateMe)
		r.Get("/orders", s.listOrders)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          strings.TrimPrefix(r.URL.Path, "/api"),
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			RequestID:     r.Header.Get("X-Request-Id"),
			Body:          body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[r.Method+" "+strings.TrimPrefix(r.URL.Path, "/api")]
		s.mu.Unlock()
		if ok {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(r.URL.Query().Get("search"))
	category := r.URL.Query().Get("category")

	s.mu.Lock()
	out := make([]types.Product, 0, len(s.products))
	for _, p := range s.products {
		if category != "" && p.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, out)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			writeData(w, http.StatusOK, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Product not found")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var cred types.Credentials
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	acc, ok := s.accounts[cred.Email]
	s.mu.Unlock()
	if !ok || acc.password != cred.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeData(w, http.StatusOK, types.AuthToken{Token: acc.token})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg types.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil || reg.Email == "" || reg.Password == "" {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[reg.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	s.tokenSeq++
	token := fmt.Sprintf("R%d", s.tokenSeq)
	id := fmt.Sprintf("u-%d", s.tokenSeq)
	s.accounts[reg.Email] = &account{
		user:     types.User{ID: id, Name: reg.Name, Email: reg.Email, CreatedAt: time.Now().UTC()},
		password: reg.Password,
		token:    token,
	}
	style := s.tokenStyle
	s.mu.Unlock()

	if style == "top" {
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "token": token})
		return
	}
	writeData(w, http.StatusCreated, types.AuthToken{Token: token})
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*account, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != "" {
		for _, acc := range s.accounts {
			if acc.token == token {
				return acc, true
			}
		}
	}
	writeError(w, http.StatusUnauthorized, "Unauthorized")
	return nil, false
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	u := acc.user
	s.mu.Unlock()
	writeData(w, http.StatusOK, u)
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var upd types.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if upd.Email != acc.user.Email {
		if _, taken := s.accounts[upd.Email]; taken {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
		delete(s.accounts, acc.user.Email)
		s.accounts[upd.Email] = acc
	}
	acc.user.Name = upd.Name
	acc.user.Email = upd.Email
	writeData(w, http.StatusOK, acc.user)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	orders := append([]types.Order(nil), s.orders[acc.user.ID]...)
	s.mu.Unlock()
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if orders == nil {
		orders = []types.Order{}
	}
	writeData(w, http.StatusOK, orders)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.Envelope[any]{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Products is the default catalog.
func Products() []types.Product {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []types.Product{
		{ID: "p-shirt", Name: "Linen Shirt", Description: "Breathable **linen** shirt.", Price: decimal.RequireFromString("10.00"), Category: "clothing", Stock: 5, CreatedAt: created},
		{ID: "p-socks", Name: "Wool Socks", Description: "Warm socks.", Price: decimal.RequireFromString("5.50"), Category: "clothing", Stock: 2, CreatedAt: created},
		{ID: "p-mug", Name: "Shirt-Print Mug", Description: "A mug with a shirt on it.", Price: decimal.RequireFromString("8.25"), Category: "kitchen", Stock: 0, CreatedAt: created},
	}
}

// Order builds an order whose total matches its items.
func Order(id, userID string, status types.OrderStatus, items ...types.CartItem) types.Order {
	return types.Order{
		ID:        id,
		UserID:    userID,
		Items:     items,
		Total:     types.SumItems(items),
		Status:    status,
		CreatedAt: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}
