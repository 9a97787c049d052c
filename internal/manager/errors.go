package manager

// sessionNotFoundError signals an unknown session id for 404 mapping.
type sessionNotFoundError struct{ id string }

func (e sessionNotFoundError) Error() string { return "session not found: " + e.id }

// ErrSessionNotFound returns an error for a session id that is not live.
func ErrSessionNotFound(id string) error { return sessionNotFoundError{id: id} }

// IsSessionNotFound reports whether err indicates a missing session id.
func IsSessionNotFound(err error) bool {
	_, ok := err.(sessionNotFoundError)
	return ok
}

// modelNotFoundError signals a model id that is not present in the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound returns an error when a requested model id is not present in the registry.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// closedError is returned once the manager has been shut down.
type closedError struct{}

func (closedError) Error() string { return "manager is closed" }

// ErrClosed is returned by operations on a closed manager.
var ErrClosed error = closedError{}

// IsClosed reports whether err indicates the manager was shut down (return 503).
func IsClosed(err error) bool {
	_, ok := err.(closedError)
	return ok
}
