package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

const (
	// LocaleKey is the context key for the locale.
	LocaleKey = contextKey("locale")

	// LocaleCookieName remembers an explicit ?lang= choice.
	LocaleCookieName = "touch_lang"
)

// Locale resolves the request language among the configured ones and
// injects its code into the request context. Priority: ?lang= query
// parameter, language cookie, Accept-Language header, defaultLocale.
func Locale(defaultLocale string, languages []string) func(http.Handler) http.Handler {
	codes := []string{defaultLocale}
	for _, code := range languages {
		if code != defaultLocale {
			codes = append(codes, code)
		}
	}
	tags := make([]language.Tag, 0, len(codes))
	for _, code := range codes {
		tags = append(tags, language.Make(code))
	}
	matcher := language.NewMatcher(tags)

	known := make(map[string]bool, len(codes))
	for _, code := range codes {
		known[code] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := ""

			if q := r.URL.Query().Get("lang"); known[q] {
				locale = q
				http.SetCookie(w, &http.Cookie{Name: LocaleCookieName, Value: q, Path: "/", SameSite: http.SameSiteLaxMode})
			} else if c, err := r.Cookie(LocaleCookieName); err == nil && known[c.Value] {
				locale = c.Value
			}

			if locale == "" {
				_, idx := language.MatchStrings(matcher, r.Header.Get("Accept-Language"))
				locale = codes[idx]
			}

			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), locale)))
		})
	}
}

// WithLocale returns a copy of ctx carrying locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, LocaleKey, locale)
}

// GetLocale extracts the locale from the context.
// Returns "en" if no locale is found.
func GetLocale(ctx context.Context) string {
	if ctx == nil {
		return "en"
	}
	if locale, ok := ctx.Value(LocaleKey).(string); ok && locale != "" {
		return locale
	}
	return "en"
}
