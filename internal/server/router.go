// Package server wires configuration and the HTTP router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alarmkit/alarmd/internal/api"
)

// NewRouter builds the full HTTP surface: the alarm API plus the health
// and metrics endpoints.
func NewRouter(handler *api.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(api.RequestID)
	r.Use(api.RequestLogger)
	r.Use(api.LimitBody)
	r.Use(api.ValidateContentType)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	handler.Register(r)
	return r
}
