package service

import (
	"time"

	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
	"github.com/okian/interpretreflect/internal/config"
	"github.com/okian/interpretreflect/internal/domain/wellness"
	"github.com/okian/interpretreflect/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Defaults come from config.New.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects the reflection store instead of opening one from config.
func WithStore(st datastore.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithOutbox injects the job store instead of opening one from config.
func WithOutbox(o outbox.Store) Option {
	return func(s *Service) {
		s.jobs = o
	}
}

// WithActivityStore injects the daily activity store.
func WithActivityStore(a datastore.ActivityStore) Option {
	return func(s *Service) {
		s.activity = a
	}
}

// WithClassifier replaces the free-text classifier used for extraction.
func WithClassifier(c wellness.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
