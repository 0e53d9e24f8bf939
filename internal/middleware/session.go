// internal/middleware/session.go
package middleware

import (
	"context"
	"net/http"

	"github.com/jason-s-yu/menupick/internal/auth"
	"github.com/sirupsen/logrus"
)

type sessionKey struct{}

// Session makes sure every request carries an anonymous session. A missing or
// invalid "sid" cookie is replaced by a freshly signed one before next runs, so
// the cookie also rides on WebSocket upgrade responses.
func Session(sessions *auth.Sessions, secure bool, logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
				if sessionID, err := sessions.AuthenticateJWT(cookie.Value); err == nil {
					next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
					return
				}
			}

			sessionID := auth.NewSessionID()
			token, err := sessions.CreateJWT(sessionID)
			if err != nil {
				logger.WithError(err).Error("failed to sign session token")
				http.Error(w, "failed to create session", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     auth.SessionCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			logger.WithField("sessionID", sessionID).Debug("issued new session")
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}

// WithSessionID stores sessionID on ctx.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionID returns the session id Session attached to the request context.
func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}
