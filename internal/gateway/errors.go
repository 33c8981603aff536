package gateway

import "errors"

// ErrTimeout is returned when the primary write outlives the save timeout.
var ErrTimeout = errors.New("request timed out")
