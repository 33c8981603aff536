package gateway

import (
	"time"

	"github.com/okian/interpretreflect/pkg/logger"
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout bounds the primary write.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithNotify registers a callback run after side jobs are enqueued, so a
// dispatcher can pick them up without waiting for its next poll.
func WithNotify(fn func()) Option {
	return func(g *Gateway) {
		g.notify = fn
	}
}
