package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session_id"

	// UserIDKey is the context key for the user ID.
	UserIDKey = contextKey("user_id")

	// SessionIDKey is the context key for the session ID.
	SessionIDKey = contextKey("session_id")
)

// SessionValidator validates session tokens and returns user ID on success.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) (userID string, err error)
}

// OptionalSession extracts user context from session cookie if present.
// Does NOT require authentication - continues even without valid token.
func OptionalSession(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err == nil && cookie.Value != "" {
				userID, err := validator.ValidateSession(r.Context(), cookie.Value)
				if err == nil {
					r = r.WithContext(withSession(r.Context(), userID, cookie.Value))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Session validates session cookies and injects user context.
// If the session is invalid, it clears the cookie and redirects to loginPath.
func Session(validator SessionValidator, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			userID, err := validator.ValidateSession(r.Context(), cookie.Value)
			if err != nil {
				ClearSessionCookie(w)
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), userID, cookie.Value)))
		})
	}
}

func withSession(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// ClearSessionCookie clears the session cookie by setting MaxAge to -1.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSessionCookie sets the session cookie with the given value and TTL.
func SetSessionCookie(w http.ResponseWriter, value string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetUserID extracts the user ID from the context.
func GetUserID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetSessionID extracts the session ID from the context.
func GetSessionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

// DefaultStack applies the default middleware stack to a router.
func DefaultStack(r chi.Router) {
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
}
