package middleware

import (
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"
)

// CSRFFieldName is the hidden form field carrying the token.
const CSRFFieldName = "_csrf"

// CSRF protects unsafe methods with a double-submit token.
// When secure is false requests are treated as plaintext HTTP, which is what
// a development server behind no TLS terminator needs.
func CSRF(key []byte, secure bool, trustedOrigins []string) func(http.Handler) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.FieldName(CSRFFieldName),
		csrf.TrustedOrigins(trustedOrigins),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// CSRFField returns the hidden input for the request's token, or an empty
// string when the request did not pass through CSRF.
func CSRFField(r *http.Request) template.HTML {
	return csrf.TemplateField(r)
}

// Passthrough is a no-op middleware.
func Passthrough(next http.Handler) http.Handler {
	return next
}
