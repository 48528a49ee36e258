package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/caronahq/carona-system/internal/domain/models"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
)

// Auth validates the bearer token, loads the account and injects the session
// into the request context. Requests without a token pass through as
// anonymous; protected endpoints reject those via RequireSession.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		if header == "" {
			// WebSocket clients cannot set headers from the browser; they
			// pass the token as a query parameter instead.
			if tok := r.URL.Query().Get("token"); tok != "" {
				header = "Bearer " + tok
			}
		}
		if header == "" {
			r = r.WithContext(models.WithSession(ctx, models.Anonymous()))
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}

		user, err := h.auth.Authenticate(ctx, token)
		if err != nil || user == nil {
			h.log.Error(wrap.ErrorCtx(ctx, err), "failed to authenticate user", err)
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx = models.WithSession(ctx, models.NewSession(user))
		ctx = wrap.WithUserID(ctx, user.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession allows only authenticated requests through.
func (h *Middleware) RequireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := models.SessionFromContext(r.Context())
		if session.IsAnonymous() {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAdmin allows only accounts with the admin capability.
func (h *Middleware) RequireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := models.SessionFromContext(r.Context())
		if session.IsAnonymous() {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if !session.User.Capabilities().CanAdminister {
			errorResponse(w, http.StatusForbidden, "forbidden: insufficient role")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
