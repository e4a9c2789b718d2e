package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"storefront/internal/logging"
	"storefront/internal/types"
)

// ProductQuery encodes a filter. Empty fields are omitted entirely rather
// than sent as empty strings.
func ProductQuery(f types.ProductFilter) url.Values {
	if f.IsZero() {
		return nil
	}
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	return q
}

// ListProducts calls GET /products. Products with a negative price or stock
// are dropped from the listing.
func (c *Client) ListProducts(ctx context.Context, f types.ProductFilter) ([]types.Product, error) {
	products, err := call[[]types.Product](ctx, c, http.MethodGet, "/products", ProductQuery(f), nil)
	if err != nil {
		return nil, err
	}
	valid := products[:0]
	for _, p := range products {
		if err := p.Validate(); err != nil {
			logging.Get(logging.CategoryAPI).Warn("GET /products: dropping invalid product: %v", err)
			continue
		}
		valid = append(valid, p)
	}
	return valid, nil
}

// GetProduct calls GET /products/:id.
func (c *Client) GetProduct(ctx context.Context, id string) (types.Product, error) {
	if id == "" {
		return types.Product{}, fmt.Errorf("product id required")
	}
	path := "/products/" + url.PathEscape(id)
	p, err := call[types.Product](ctx, c, http.MethodGet, path, nil, nil)
	if err != nil {
		return types.Product{}, err
	}
	if err := p.Validate(); err != nil {
		return types.Product{}, &Error{Method: http.MethodGet, Path: path, Status: http.StatusOK, Err: err}
	}
	return p, nil
}

// Login calls POST /auth/login and returns the issued token.
func (c *Client) Login(ctx context.Context, cred types.Credentials) (string, error) {
	tok, err := call[types.AuthToken](ctx, c, http.MethodPost, "/auth/login", nil, cred)
	if err != nil {
		return "", err
	}
	if tok.Token == "" {
		return "", &Error{Method: http.MethodPost, Path: "/auth/login", Status: http.StatusOK, Message: "response carried no token"}
	}
	return tok.Token, nil
}

// Register calls POST /auth/register and returns the issued token.
// Some deployments put the token at the top level instead of under data.
func (c *Client) Register(ctx context.Context, reg types.Registration) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/auth/register", nil, reg)
	if err != nil {
		return "", err
	}
	var res struct {
		Data  types.AuthToken `json:"data"`
		Token string          `json:"token"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", &Error{Method: http.MethodPost, Path: "/auth/register", Status: http.StatusOK, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	token := res.Data.Token
	if token == "" {
		token = res.Token
	}
	if token == "" {
		return "", &Error{Method: http.MethodPost, Path: "/auth/register", Status: http.StatusOK, Message: "response carried no token"}
	}
	return token, nil
}

// Me calls GET /users/me.
func (c *Client) Me(ctx context.Context) (types.User, error) {
	return call[types.User](ctx, c, http.MethodGet, "/users/me", nil, nil)
}

// UpdateMe calls PUT /users/me with the edited name and email.
func (c *Client) UpdateMe(ctx context.Context, upd types.ProfileUpdate) (types.User, error) {
	return call[types.User](ctx, c, http.MethodPut, "/users/me", nil, upd)
}

// ListOrders calls GET /orders.
func (c *Client) ListOrders(ctx context.Context) ([]types.Order, error) {
	return call[[]types.Order](ctx, c, http.MethodGet, "/orders", nil, nil)
}
