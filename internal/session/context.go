package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
)

type contextKey struct{}

// NewContext stores a session on ctx.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*Session)
	return sess, ok && sess != nil
}

// Touch marks the session as in use. Long-lived streams call it so the
// janitor leaves them alone.
func (s *Session) Touch() {
	s.touch(time.Now())
}

// Attach resolves the caller's session from the claims set by
// middleware.Authenticate, re-attaching it when it was evicted.
func (m *Manager) Attach(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			logger.Warn("Session requested without claims")
			response.Error(w, appErrors.UnauthorizedError("Authentication required"))
			return
		}

		token, _ := middleware.TokenFromContext(r.Context())

		sess, err := m.Resolve(r.Context(), claims, token)
		if err != nil {
			logger.Warn("Failed to resolve session", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
	}
}
