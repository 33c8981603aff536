package outbox

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy decides when a failed job runs again and when it is given up.
type Policy struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	Jitter      float64
	MaxAttempts int
}

// DefaultPolicy retries eight times starting at one second, capped at five
// minutes.
func DefaultPolicy() Policy {
	return Policy{
		Initial:     time.Second,
		Max:         5 * time.Minute,
		Multiplier:  backoff.DefaultMultiplier,
		Jitter:      backoff.DefaultRandomizationFactor,
		MaxAttempts: 8,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	d := p.Initial
	for i := 0; i < max(attempt, 1); i++ {
		d = b.NextBackOff()
	}
	return d
}

// Exhausted reports whether a job that has made attempts should be buried.
func (p Policy) Exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsPermanent reports whether err was marked by Permanent.
func IsPermanent(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}
