package models

import "context"

// Session is the authenticated-user context for one request. It is built by
// the auth middleware on login-token validation and passed explicitly via
// the request context — core operations read the actor from it instead of
// any ambient global.
type Session struct {
	User *User
}

func NewSession(u *User) *Session {
	return &Session{User: u}
}

// Anonymous is the session used before authentication.
func Anonymous() *Session {
	return &Session{}
}

func (s *Session) IsAnonymous() bool {
	return s == nil || s.User == nil
}

// UserID returns the acting identity, empty for anonymous sessions.
func (s *Session) UserID() string {
	if s.IsAnonymous() {
		return ""
	}
	return s.User.Email
}

type sessionKeyStruct struct{}

var sessionKey = &sessionKeyStruct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the request session, never nil.
func SessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok && s != nil {
		return s
	}
	return Anonymous()
}
