package query

// Status is what a screen shows for a fetch.
type Status int

const (
	StatusLoading Status = iota // no data yet
	StatusError                 // last call rejected and nothing cached
	StatusSuccess               // data present
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	}
	return "unknown"
}

// State is the loading/error/success triple a screen renders from.
type State[T any] struct {
	Status Status
	Data   T
	Err    error
	// Refreshing is set while a revalidation runs over cached data.
	Refreshing bool
}

// Loading returns the initial state, seeded with cached data when present.
func Loading[T any](c *Cache, key Key) State[T] {
	if v, ok := Cached[T](c, key); ok {
		return State[T]{Status: StatusSuccess, Data: v, Refreshing: true}
	}
	return State[T]{Status: StatusLoading}
}

// Resolve folds a fetch result into s. A failed revalidation keeps the data
// that was already on screen.
func (s State[T]) Resolve(v T, err error) State[T] {
	if err != nil {
		if s.Status == StatusSuccess {
			s.Refreshing = false
			s.Err = err
			return s
		}
		return State[T]{Status: StatusError, Err: err}
	}
	return State[T]{Status: StatusSuccess, Data: v}
}
