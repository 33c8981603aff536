package auth

import (
	"context"
	"time"
)

type contextKey string

const (
	sessionKey     contextKey = "session"
	serviceRoleKey contextKey = "service_role"
)

// Session is an authenticated user session.
type Session struct {
	UserID    string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// WithSession returns ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the session carried by ctx.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}

// UserIDFrom returns the session user id, or "" when unauthenticated.
func UserIDFrom(ctx context.Context) string {
	s, _ := SessionFrom(ctx)
	return s.UserID
}

// WithServiceRole marks ctx as background work that writes with the service
// key instead of any user session.
func WithServiceRole(ctx context.Context) context.Context {
	return context.WithValue(ctx, serviceRoleKey, true)
}

// IsServiceRole reports whether ctx was marked by WithServiceRole.
func IsServiceRole(ctx context.Context) bool {
	v, _ := ctx.Value(serviceRoleKey).(bool)
	return v
}
