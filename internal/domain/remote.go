package domain

// RemoteState tags the lifecycle of remotely-fetched data.
type RemoteState int

const (
	// RemoteInitial nothing requested yet.
	RemoteInitial RemoteState = iota
	// RemotePending a request is in flight.
	RemotePending
	// RemoteSuccess the latest request succeeded.
	RemoteSuccess
	// RemoteFailure the latest request failed.
	RemoteFailure
)

// RemoteData is an explicit initial/pending/success/failure wrapper for a
// remotely-fetched value. Consumers switch on State exhaustively instead of
// testing for nil.
type RemoteData[T any] struct {
	state RemoteState
	value T
	err   error
}

// RemoteInitialOf returns the initial state.
func RemoteInitialOf[T any]() RemoteData[T] { return RemoteData[T]{state: RemoteInitial} }

// RemotePendingOf returns the pending state.
func RemotePendingOf[T any]() RemoteData[T] { return RemoteData[T]{state: RemotePending} }

// RemoteSuccessOf wraps a successfully fetched value.
func RemoteSuccessOf[T any](v T) RemoteData[T] {
	return RemoteData[T]{state: RemoteSuccess, value: v}
}

// RemoteFailureOf wraps a fetch error.
func RemoteFailureOf[T any](err error) RemoteData[T] {
	return RemoteData[T]{state: RemoteFailure, err: err}
}

// State returns the lifecycle tag.
func (r RemoteData[T]) State() RemoteState { return r.state }

// Value returns the fetched value and whether one is present.
func (r RemoteData[T]) Value() (T, bool) {
	if r.state == RemoteSuccess {
		return r.value, true
	}
	var zero T
	return zero, false
}

// Err returns the failure cause, nil unless failed.
func (r RemoteData[T]) Err() error {
	if r.state == RemoteFailure {
		return r.err
	}
	return nil
}

// OrElse returns the fetched value or the fallback.
func (r RemoteData[T]) OrElse(fallback T) T {
	if v, ok := r.Value(); ok {
		return v
	}
	return fallback
}
