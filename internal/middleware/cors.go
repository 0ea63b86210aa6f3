package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSMiddleware allows the web app's origins. An empty list allows any origin
// without credentials.
func CORSMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	origins := allowedOrigins
	credentials := true
	if len(origins) == 0 {
		origins = []string{"*"}
		credentials = false
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Requested-With",
			"X-Request-ID",
		},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: credentials,
		MaxAge:           300,
	})
}
