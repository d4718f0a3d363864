package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
)

type componentStatus struct {
	OK          bool   `json:"ok"`
	Instances   *int   `json:"instances,omitempty"`
	Endpoints   *int   `json:"endpoints,omitempty"`
	Connections *int   `json:"connections,omitempty"`
	LastChange  string `json:"last_change,omitempty"`
	LastExport  string `json:"last_export,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Error       string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		instances, endpoints := d.Registry.Count()
		connections := 0
		if d.Connections != nil {
			connections = d.Connections.Count()
		}

		components := map[string]componentStatus{
			"registry": {
				OK:         true,
				Instances:  &instances,
				Endpoints:  &endpoints,
				LastChange: formatTime(d.Registry.LastChange()),
			},
			"events": {
				OK:          d.EventHandler != nil,
				Connections: &connections,
			},
			"redis": checkRedis(r.Context(), d),
		}

		response := infraResponse{
			Mode:       determineMode(components),
			Components: components,
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05")
}

func determineMode(components map[string]componentStatus) string {
	if events, exists := components["events"]; exists && !events.OK {
		return "critical" // nothing can register
	}

	if redis, exists := components["redis"]; exists && !redis.OK && redis.Mode != "disabled" {
		return "degraded" // snapshot export failing, queries unaffected
	}

	return "operational"
}

func checkRedis(parent context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{
			OK:     false,
			Mode:   "disabled",
			Impact: "snapshot-export-disabled",
		}
	}

	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	status := componentStatus{Mode: "optimal", Impact: "snapshot-export-enabled"}
	if d.LastExport != nil {
		status.LastExport = formatTime(d.LastExport())
	}

	if err := d.Store.Ping(ctx); err != nil {
		status.Mode = "degraded"
		status.Impact = "snapshot-export-failing"
		status.Error = err.Error()
		return status
	}

	status.OK = true
	return status
}
