package storage

import "errors"

// ErrUnavailable indicates the backend could not be reached or the query
// failed. The limiter converts it into a fail-open decision; it is never
// surfaced to end users.
var ErrUnavailable = errors.New("attempt store unavailable")
