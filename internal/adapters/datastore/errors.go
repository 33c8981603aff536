package datastore

import (
	"errors"
	"fmt"
)

// Sentinel kinds for data store errors.
var (
	ErrInvalidQuery = errors.New("invalid data store query")
	ErrUnavailable  = errors.New("data store unavailable")
)

// StatusError is a rejected request. Its message is the store's own error
// body so callers can surface it unchanged.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("data store returned status %d", e.Status)
	}
	return e.Body
}
