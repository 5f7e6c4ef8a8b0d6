package auth

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/RAXITGAJERA/product-management/pkg/observability"
	"github.com/RAXITGAJERA/product-management/pkg/rbac"
)

// SessionMiddleware resolves the session cookie into a subject on the
// request context. Requests without a valid session proceed anonymous;
// access decisions happen downstream.
func SessionMiddleware(sessions *SessionManager, logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			subject, err := sessions.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, ErrSessionNotFound) {
					ClearSessionCookie(w)
				} else {
					logger.WithError(err).Error("session resolution failed")
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := rbac.WithSubject(r.Context(), subject)
			ctx = observability.WithUserID(ctx, strconv.FormatInt(subject.UserID, 10))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie writes the session token cookie.
func SetSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session token cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
