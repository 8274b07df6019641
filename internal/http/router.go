// Package http wires the route table for the census service.
package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"census-backend/internal/handlers"
	"census-backend/internal/middleware"
	"census-backend/internal/monitoring"
)

// NewRouter builds the full route table. The export endpoints sit
// behind the stricter rate limiter because they take a guessable
// password.
func NewRouter(formHandler *handlers.FormHandler, exportHandler *handlers.ExportHandler, healthHandler *handlers.HealthHandler, exportLimiter *middleware.RateLimiter) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	r.Handle("/metrics", monitoring.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Selectable field values for form rendering
	api.HandleFunc("/form/options", formHandler.GetOptions).Methods(http.MethodGet)

	// Interactive form sessions
	sessions := api.PathPrefix("/form/sessions").Subrouter()
	sessions.HandleFunc("", formHandler.CreateSession).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}", formHandler.GetSession).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}", formHandler.DeleteSession).Methods(http.MethodDelete)
	sessions.HandleFunc("/{id}/head", formHandler.EditHead).Methods(http.MethodPatch)
	sessions.HandleFunc("/{id}/spouse", formHandler.EditSpouse).Methods(http.MethodPatch)
	sessions.HandleFunc("/{id}/children/{type}/{index}", formHandler.EditChild).Methods(http.MethodPatch)
	sessions.HandleFunc("/{id}/children/{type}/{index}/spouse", formHandler.EditChildSpouse).Methods(http.MethodPatch)
	sessions.HandleFunc("/{id}/children/{type}/{index}/spouse/grandchildren/{gcIndex}", formHandler.EditGrandchild).Methods(http.MethodPatch)
	sessions.HandleFunc("/{id}/submit", formHandler.Submit).Methods(http.MethodPost)

	// One-shot submit for non-interactive clients
	api.HandleFunc("/families", formHandler.CreateFamily).Methods(http.MethodPost)

	// Password-gated bulk export
	export := api.PathPrefix("/export").Subrouter()
	if exportLimiter != nil {
		export.Use(exportLimiter.Middleware)
	}
	export.HandleFunc("/csv", exportHandler.ExportCSV).Methods(http.MethodPost)
	export.HandleFunc("/excel", exportHandler.ExportExcel).Methods(http.MethodPost)

	return r
}
