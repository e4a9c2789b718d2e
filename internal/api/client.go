// Package api is the HTTP client for the remote storefront API.
//
// Every call goes to a fixed base URL with JSON content negotiation, carries
// the current bearer token when one exists, and makes exactly one attempt:
// no retry, no client-side timeout, no backoff. A 401 from any endpoint is
// reported to the unauthorized handler; all other failures are returned to
// the caller untouched.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/logging"
	"storefront/internal/types"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HeaderRequestID correlates a client call with server logs.
const HeaderRequestID = "X-Request-Id"

// Client talks to the storefront API.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	token          func() string
	onUnauthorized func(*Error)
	breaker        *gobreaker.CircuitBreaker[*response]
	trace          bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource supplies the bearer token read before each request.
func WithTokenSource(fn func() string) Option {
	return func(c *Client) { c.token = fn }
}

// WithUnauthorizedHandler is called once per 401 response, before the error
// is returned to the caller. The navigation decision belongs to the handler.
func WithUnauthorizedHandler(fn func(*Error)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithTracing wraps the transport with OpenTelemetry instrumentation.
func WithTracing() Option {
	return func(c *Client) { c.trace = true }
}

// New creates a client for baseURL, e.g. http://localhost:3000/api.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{baseURL: u, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}

	if c.trace {
		base := c.http.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		traced := *c.http
		traced.Transport = otelhttp.NewTransport(base)
		c.http = &traced
	}
	return c, nil
}

// BaseURL returns the configured base address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type response struct {
	status    int
	body      []byte
	requestID string
}

// errServerStatus makes 5xx responses count as breaker failures.
var errServerStatus = errors.New("server error status")

// do sends one request and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in any) ([]byte, error) {
	timer := logging.StartTimer(logging.CategoryAPI, method+" "+path)
	defer timer.Stop()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	log := logging.Get(logging.CategoryAPI).With("request_id", requestID)
	log.Debug("%s %s", method, u.String())

	res, err := c.send(req)
	if err != nil && !errors.Is(err, errServerStatus) {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.Warn("%s %s rejected: circuit open", method, path)
			return nil, &Error{Method: method, Path: path, RequestID: requestID, Err: ErrCircuitOpen}
		}
		log.Warn("%s %s failed: %v", method, path, err)
		return nil, &Error{Method: method, Path: path, RequestID: requestID, Err: err}
	}
	res.requestID = requestID

	switch {
	case res.status == http.StatusUnauthorized:
		apiErr := &Error{
			Method:    method,
			Path:      path,
			Status:    res.status,
			Message:   messageOf(res.body, res.status),
			RequestID: requestID,
			Err:       ErrUnauthenticated,
		}
		log.Info("%s %s -> 401", method, path)
		if c.onUnauthorized != nil {
			c.onUnauthorized(apiErr)
		}
		return nil, apiErr
	case res.status < 200 || res.status > 299:
		log.Info("%s %s -> %d", method, path, res.status)
		return nil, &Error{
			Method:    method,
			Path:      path,
			Status:    res.status,
			Message:   messageOf(res.body, res.status),
			RequestID: requestID,
		}
	}

	log.Debug("%s %s -> %d (%d bytes)", method, path, res.status, len(res.body))
	return res.body, nil
}

func (c *Client) send(req *http.Request) (*response, error) {
	roundTrip := func() (*response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		res := &response{status: resp.StatusCode, body: data}
		if resp.StatusCode >= 500 {
			return res, errServerStatus
		}
		return res, nil
	}

	if c.breaker == nil {
		return roundTrip()
	}
	return c.breaker.Execute(roundTrip)
}

// call performs a request and unwraps the envelope's data.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, in any) (T, error) {
	var zero T
	body, err := c.do(ctx, method, path, query, in)
	if err != nil {
		return zero, err
	}
	var env types.Envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, &Error{Method: method, Path: path, Status: http.StatusOK, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return env.Data, nil
}

// messageOf extracts a human message from an error body, falling back to the status text.
func messageOf(body []byte, status int) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return http.StatusText(status)
}
