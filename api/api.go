package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gramasevaka/gs-portal-api/config"
	"github.com/gramasevaka/gs-portal-api/models"
)

// New creates a new mux router with the health and metrics routes.
// ping checks the database; it may be nil.
func New(ping func(context.Context) error) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", healthCheckHandler(ping)).Methods("GET")
	r.Handle("/metrics", MetricsHandler()).Methods("GET")

	return r
}

func healthCheckHandler(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := WithQueryTimeout(r.Context())
			defer cancel()
			if err := ping(ctx); err != nil {
				config.ErrorStatus("database unavailable", http.StatusServiceUnavailable, w, err)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(models.HealthCheckResponse{Alive: true})
	}
}
