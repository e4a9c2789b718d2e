// Package shop is the typed data-access layer screens and commands call.
//
// Reads go through the query cache keyed by endpoint and parameters. Writes
// go straight to the API and then update the session or the cache.
package shop

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/api"
	"storefront/internal/config"
	"storefront/internal/logging"
	"storefront/internal/query"
	"storefront/internal/session"
	"storefront/internal/types"
)

// Cache key endpoints.
const (
	KeyProducts = "products"
	KeyProduct  = "product"
	KeyUser     = "users/me"
	KeyOrders   = "orders"
)

// Service wires the API client, the session and the fetch cache.
type Service struct {
	client  *api.Client
	session *session.Session
	cache   *query.Cache
}

// New builds a Service over an existing client.
func New(client *api.Client, sess *session.Session, cache *query.Cache) *Service {
	return &Service{client: client, session: sess, cache: cache}
}

// Open builds the API client from cfg. The client reads the token from sess
// on every request and invalidates sess on any 401.
func Open(cfg *config.Config, sess *session.Session, extra ...api.Option) (*Service, error) {
	cache := query.NewCache(cfg.GetStaleTime())
	opts := []api.Option{
		api.WithTokenSource(sess.Token),
		api.WithUnauthorizedHandler(func(e *api.Error) {
			cache.Invalidate(KeyUser)
			cache.Invalidate(KeyOrders)
			sess.Invalidate(context.Background(), e.Error())
		}),
	}
	if cfg.API.Breaker.Enabled {
		opts = append(opts, api.WithBreaker(api.BreakerSettings{
			MaxFailures: cfg.API.Breaker.MaxFailures,
			OpenTimeout: cfg.GetBreakerTimeout(),
		}))
	}
	if cfg.API.Trace {
		opts = append(opts, api.WithTracing())
	}
	opts = append(opts, extra...)

	client, err := api.New(cfg.API.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return New(client, sess, cache), nil
}

// Session returns the session the service writes tokens to.
func (s *Service) Session() *session.Session { return s.session }

// Cache returns the fetch cache.
func (s *Service) Cache() *query.Cache { return s.cache }

// ProductsKey is the cache key of a product listing.
func ProductsKey(f types.ProductFilter) query.Key {
	return query.NewKey(KeyProducts, f.Search, f.Category)
}

// ProductKey is the cache key of one product.
func ProductKey(id string) query.Key {
	return query.NewKey(KeyProduct, id)
}

// UserKey is the cache key of the current user.
func UserKey() query.Key { return query.NewKey(KeyUser) }

// OrdersKey is the cache key of the current user's orders.
func OrdersKey() query.Key { return query.NewKey(KeyOrders) }

// Products lists the catalog matching f.
func (s *Service) Products(ctx context.Context, f types.ProductFilter) ([]types.Product, error) {
	return query.Get(ctx, s.cache, ProductsKey(f), func(ctx context.Context) ([]types.Product, error) {
		return s.client.ListProducts(ctx, f)
	})
}

// Product fetches one product.
func (s *Service) Product(ctx context.Context, id string) (types.Product, error) {
	return query.Get(ctx, s.cache, ProductKey(id), func(ctx context.Context) (types.Product, error) {
		return s.client.GetProduct(ctx, id)
	})
}

// CurrentUser fetches the logged-in user.
func (s *Service) CurrentUser(ctx context.Context) (types.User, error) {
	return query.Get(ctx, s.cache, UserKey(), s.client.Me)
}

// Orders fetches the logged-in user's order history.
func (s *Service) Orders(ctx context.Context) ([]types.Order, error) {
	return query.Get(ctx, s.cache, OrdersKey(), s.client.ListOrders)
}

// UpdateProfile saves name and email and refreshes the cached user.
func (s *Service) UpdateProfile(ctx context.Context, upd types.ProfileUpdate) (types.User, error) {
	u, err := s.client.UpdateMe(ctx, upd)
	if err != nil {
		return types.User{}, err
	}
	s.cache.Set(UserKey(), u)
	logging.API("Profile updated for %s", u.ID)
	return u, nil
}

// Login exchanges credentials for a token and stores it in the session.
func (s *Service) Login(ctx context.Context, cred types.Credentials) error {
	if cred.Email == "" || cred.Password == "" {
		return errors.New("email and password are required")
	}
	token, err := s.client.Login(ctx, cred)
	if err != nil {
		return err
	}
	return s.authenticated(ctx, token)
}

// Register creates an account and stores the issued token in the session.
func (s *Service) Register(ctx context.Context, reg types.Registration) error {
	if reg.Email == "" || reg.Password == "" {
		return errors.New("email and password are required")
	}
	token, err := s.client.Register(ctx, reg)
	if err != nil {
		return err
	}
	return s.authenticated(ctx, token)
}

// Logout clears the session and every cached result.
func (s *Service) Logout(ctx context.Context) error {
	s.cache.Clear()
	return s.session.Clear(ctx)
}

func (s *Service) authenticated(ctx context.Context, token string) error {
	// Results fetched under a previous identity must not leak into this one.
	s.cache.Invalidate(KeyUser)
	s.cache.Invalidate(KeyOrders)
	if err := s.session.Set(ctx, token); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}
