package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/internal/auth"
	"github.com/okian/interpretreflect/internal/domain/model"
	"github.com/okian/interpretreflect/internal/gateway"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrUnavailable = errors.New("service unavailable")
)

// Error tags a failure with the operation it came from. Its message is the
// cause's message, so clients see the underlying reason unchanged.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return e.Op
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Wrap tags err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind tags err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of kind for op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	var se *datastore.StatusError
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidKind),
		errors.Is(err, model.ErrInvalidPayload):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, auth.ErrSessionExpired):
		return http.StatusUnauthorized, "session_expired"
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, gateway.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		// client closed request
		return statusClientClosed, "canceled"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.As(err, &se):
		return http.StatusBadGateway, "store_rejected"
	default:
		return http.StatusBadGateway, "store_error"
	}
}
