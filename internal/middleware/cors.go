package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"census-backend/internal/config"
)

// NewCORS builds the CORS wrapper from the configured origins. An
// empty origin list means same-origin deployment and allows everything,
// matching local development.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Accept"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	})

	return c.Handler
}
