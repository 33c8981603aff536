package worker

import (
	"time"

	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
	"github.com/okian/interpretreflect/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithPolicy sets the retry policy.
func WithPolicy(p outbox.Policy) Option {
	return func(w *InMemoryWorker) {
		w.policy = p
	}
}

// WithJobTimeout bounds a single handler run.
func WithJobTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.jobTimeout = d
		}
	}
}

// WithClock overrides the time source used to schedule retries.
func WithClock(now func() time.Time) Option {
	return func(w *InMemoryWorker) {
		if now != nil {
			w.now = now
		}
	}
}
