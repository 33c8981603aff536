package outbox

import "errors"

// Sentinel kinds for outbox errors.
var (
	ErrJobNotFound = errors.New("outbox job not found")
	ErrInvalidJob  = errors.New("invalid outbox job")
)
