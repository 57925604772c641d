package http

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORS adds CORS headers for a configured allow-list. A "*" entry allows any
// origin; an empty list disables CORS entirely.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return next
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", idempotencyHeader},
	}).Handler(next)
}
