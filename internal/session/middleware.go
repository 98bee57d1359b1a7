package session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// DefaultCookieName is used when CookieConfig.Name is empty.
const DefaultCookieName = "sf_session"

type contextKey string

const sessionKey contextKey = "session"

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// FromContext returns the session placed by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*Session)
	return sess, ok && sess != nil
}

// Middleware resolves the visitor's session from the session cookie, creating a
// session and setting the cookie when it is missing, malformed or expired.
func Middleware(store *Store, cfg CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.Name == "" {
		cfg.Name = DefaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id uuid.UUID
			if c, err := r.Cookie(cfg.Name); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed
				}
			}
			sess, created := store.GetOrCreate(id)
			if created {
				logger.DebugContext(r.Context(), "Session started", "session_id", sess.ID().String())
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.Name,
					Value:    sess.ID().String(),
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
