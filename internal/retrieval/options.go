package retrieval

import (
	"time"

	"github.com/okian/interpretreflect/pkg/logger"
)

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the zone used for day and week bucketing.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithReadTimeout bounds every store read.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTopKinds sets how many kinds insights list.
func WithTopKinds(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topKinds = n
		}
	}
}

// WithMaxLimit caps the number of entries one list call may return.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
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

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}
