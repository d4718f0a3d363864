package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/logger"
)

// Discovery returns every registered service instance, unfiltered.
func Discovery(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d, d.Registry.ListAll())
	}
}

// Instance returns the available endpoints of ?name=, or [] when the name is
// missing or unknown.
func Instance(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		writeJSON(w, d, d.Registry.QueryAvailable(name))
	}
}

func writeJSON(w http.ResponseWriter, d deps.Deps, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}
