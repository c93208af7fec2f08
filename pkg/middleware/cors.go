package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the dispatcher console to call the API from the listed
// origins. With no origins configured every cross-origin request is denied.
func CORS(origins ...string) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	}
	if len(origins) == 0 {
		// the library treats an empty list as allow-all
		options.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(options)
}
