package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated marks a 401 from any endpoint. It is the one error
	// the client treats globally; everything else is the caller's business.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrCircuitOpen is returned without sending the request while the
	// breaker is open.
	ErrCircuitOpen = errors.New("storefront API circuit open")
)

// Error is a failed API call. Status is 0 for transport failures.
type Error struct {
	Method    string
	Path      string
	Status    int
	Message   string
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Status == 0:
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, msg)
	case msg != "":
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
	default:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsUnauthenticated reports whether err came from a 401.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
