package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// SessionTokenHeader carries the access token on login and register responses.
const SessionTokenHeader = "X-Bazaar-Token"

// Origins used when BAZAAR_CORS_ALLOWED_ORIGINS is empty: the local web and vite dev servers.
var devOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS applies the browser origin policy. Credentials are allowed, so
// origins must be listed explicitly rather than wildcarded.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = devOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			idempotencyHeader, requestIDHeader, "X-Requested-With",
		},
		ExposedHeaders:   []string{requestIDHeader, SessionTokenHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
