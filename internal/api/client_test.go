package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/apitest"
	"storefront/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, srv *apitest.Server, token *string, opts ...Option) *Client {
	t.Helper()
	all := append([]Option{
		WithHTTPClient(srv.Client()),
		WithTokenSource(func() string { return *token }),
	}, opts...)
	c, err := New(srv.URL(), all...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New("localhost:3000")
	assert.Error(t, err)
	_, err = New("://nope")
	assert.Error(t, err)
}

func TestListProducts_FilterEncoding(t *testing.T) {
	srv := apitest.New(t)
	token := ""
	c := newClient(t, srv, &token)
	ctx := context.Background()

	products, err := c.ListProducts(ctx, types.ProductFilter{Search: "shirt", Category: "clothing"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p-shirt", products[0].ID)

	_, err = c.ListProducts(ctx, types.ProductFilter{})
	require.NoError(t, err)

	_, err = c.ListProducts(ctx, types.ProductFilter{Category: "kitchen"})
	require.NoError(t, err)

	reqs := srv.RequestsTo(http.MethodGet, "/products")
	require.Len(t, reqs, 3)

	if diff := cmp.Diff(map[string][]string{"search": {"shirt"}, "category": {"clothing"}}, map[string][]string(reqs[0].Query)); diff != "" {
		t.Errorf("filtered query mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, reqs[1].Query, "empty filter must omit both parameters")
	_, hasSearch := reqs[2].Query["search"]
	assert.False(t, hasSearch, "empty search must be omitted, not sent as empty")
	assert.Equal(t, "kitchen", reqs[2].Query.Get("category"))
}

func TestHeaders_JSONAndBearer(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser(types.User{ID: "u1", Name: "Ada", Email: "a@b.com"}, "x", "T1")
	token := ""
	c := newClient(t, srv, &token)
	ctx := context.Background()

	got, err := c.Login(ctx, types.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "T1", got)

	token = got
	user, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)

	login := srv.RequestsTo(http.MethodPost, "/auth/login")[0]
	assert.Empty(t, login.Authorization, "no token yet, no credential")
	assert.Equal(t, "application/json", login.ContentType)
	assert.JSONEq(t, `{"email":"a@b.com","password":"x"}`, string(login.Body))
	assert.NotEmpty(t, login.RequestID)

	me := srv.RequestsTo(http.MethodGet, "/users/me")[0]
	assert.Equal(t, "Bearer T1", me.Authorization)
	assert.Equal(t, "application/json", me.ContentType)
	assert.NotEqual(t, login.RequestID, me.RequestID)
}

func TestUnauthorized_HandlerCalledOncePerResponse(t *testing.T) {
	srv := apitest.New(t)
	token := "stale"
	var calls int32
	var seen *Error
	c := newClient(t, srv, &token, WithUnauthorizedHandler(func(e *Error) {
		atomic.AddInt32(&calls, 1)
		seen = e
	}))

	_, err := c.ListOrders(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthenticated(err))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.NotNil(t, seen)
	assert.Equal(t, "/orders", seen.Path)
}

func TestOtherErrors_DoNotTriggerHandler(t *testing.T) {
	srv := apitest.New(t)
	token := ""
	var calls int32
	c := newClient(t, srv, &token, WithUnauthorizedHandler(func(*Error) { atomic.AddInt32(&calls, 1) }))
	ctx := context.Background()

	_, err := c.GetProduct(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.False(t, IsUnauthenticated(err))
	assert.Contains(t, err.Error(), "Product not found")

	srv.Fail(http.MethodGet, "/products", http.StatusInternalServerError)
	_, err = c.ListProducts(ctx, types.ProductFilter{})
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestTransportFailure(t *testing.T) {
	c, err := New("http://127.0.0.1:1/api")
	require.NoError(t, err)

	_, err = c.ListProducts(context.Background(), types.ProductFilter{})
	require.Error(t, err)
	assert.Equal(t, 0, StatusOf(err))
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.NotNil(t, apiErr.Err)
}

func TestSingleAttempt(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail(http.MethodGet, "/orders", http.StatusServiceUnavailable)
	token := ""
	c := newClient(t, srv, &token)

	_, err := c.ListOrders(context.Background())
	require.Error(t, err)
	assert.Len(t, srv.RequestsTo(http.MethodGet, "/orders"), 1, "no retries")
}

func TestRegister_TokenLocations(t *testing.T) {
	srv := apitest.New(t)
	token := ""
	c := newClient(t, srv, &token)
	ctx := context.Background()

	tok, err := c.Register(ctx, types.Registration{Email: "n@b.com", Password: "pw", Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, "R1", tok)

	srv.RegisterTokenAtTopLevel()
	tok, err = c.Register(ctx, types.Registration{Email: "m@b.com", Password: "pw", Name: "Other"})
	require.NoError(t, err)
	assert.Equal(t, "R2", tok)

	_, err = c.Register(ctx, types.Registration{Email: "m@b.com", Password: "pw"})
	assert.Equal(t, http.StatusConflict, StatusOf(err))
}

func TestProducts_InvalidProductsRejected(t *testing.T) {
	srv := apitest.New(t)
	bad := apitest.Products()[1]
	bad.ID = "p-bad"
	bad.Stock = -1
	srv.SetProducts(append(apitest.Products(), bad))
	token := ""
	c := newClient(t, srv, &token)
	ctx := context.Background()

	products, err := c.ListProducts(ctx, types.ProductFilter{})
	require.NoError(t, err)
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p-shirt", "p-socks", "p-mug"}, ids)

	_, err = c.GetProduct(ctx, "p-bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNegativeStock)
	assert.Equal(t, http.StatusOK, StatusOf(err))

	p, err := c.GetProduct(ctx, "p-socks")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)
}

func TestUpdateMe(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser(types.User{ID: "u1", Name: "Ada", Email: "a@b.com"}, "x", "T1")
	token := "T1"
	c := newClient(t, srv, &token)

	u, err := c.UpdateMe(context.Background(), types.ProfileUpdate{Name: "Ada L", Email: "ada@b.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", u.Name)
	assert.Equal(t, "ada@b.com", u.Email)

	put := srv.RequestsTo(http.MethodPut, "/users/me")[0]
	assert.JSONEq(t, `{"name":"Ada L","email":"ada@b.com"}`, string(put.Body))
}

func TestListOrders_DecodesDecimals(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser(types.User{ID: "u1", Email: "a@b.com"}, "x", "T1")
	p := apitest.Products()
	srv.SetOrders("u1", []types.Order{
		apitest.Order("o1", "u1", types.StatusShipped,
			types.CartItem{Product: p[0], Quantity: 2},
			types.CartItem{Product: p[1], Quantity: 1}),
	})
	token := "T1"
	c := newClient(t, srv, &token)

	orders, err := c.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "25.50", orders[0].Total.StringFixed(2))
	assert.True(t, orders[0].Consistent())
}

func TestBreaker_OpensAfterFailuresWithoutRetrying(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail(http.MethodGet, "/products", http.StatusBadGateway)
	token := ""
	c := newClient(t, srv, &token, WithBreaker(BreakerSettings{MaxFailures: 2, OpenTimeout: time.Minute}))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.ListProducts(ctx, types.ProductFilter{})
		assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	}

	_, err := c.ListProducts(ctx, types.ProductFilter{})
	assert.True(t, errors.Is(err, ErrCircuitOpen), "got %v", err)
	assert.Len(t, srv.RequestsTo(http.MethodGet, "/products"), 2, "open breaker must not send")
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	srv := apitest.New(t)
	token := ""
	c := newClient(t, srv, &token, WithBreaker(BreakerSettings{MaxFailures: 1, OpenTimeout: time.Minute}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.GetProduct(ctx, "missing")
		assert.Equal(t, http.StatusNotFound, StatusOf(err))
	}
}

func TestWithTracing_StillWorks(t *testing.T) {
	srv := apitest.New(t)
	token := ""
	c := newClient(t, srv, &token, WithTracing())

	_, err := c.ListProducts(context.Background(), types.ProductFilter{})
	require.NoError(t, err)
}

func TestErrorString(t *testing.T) {
	e := &Error{Method: "GET", Path: "/orders", Status: 401, Message: "Unauthorized", Err: ErrUnauthenticated}
	assert.Equal(t, "GET /orders: 401 Unauthorized", e.Error())

	e = &Error{Method: "GET", Path: "/orders", Err: errors.New("dial tcp: refused")}
	assert.Equal(t, "GET /orders: dial tcp: refused", e.Error())

	e = &Error{Method: "GET", Path: "/orders", Status: 418}
	assert.Equal(t, "GET /orders: status 418", e.Error())
}
