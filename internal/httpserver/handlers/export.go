package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/logger"
)

// Export triggers a manual snapshot export to Redis
func Export(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.ExportTrigger == nil {
			writeText(w, d, http.StatusServiceUnavailable, "⚠️ Snapshot export is disabled (no redis configured)\n")
			return
		}

		select {
		case d.ExportTrigger <- struct{}{}:
			d.Logger.Info("manual snapshot export triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeText(w, d, http.StatusAccepted, "✅ Export triggered successfully\n")
		default:
			d.Logger.Warn("snapshot export already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeText(w, d, http.StatusTooManyRequests, "⏳ Export already pending, please wait\n")
		}
	}
}

func writeText(w http.ResponseWriter, d deps.Deps, status int, body string) {
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}
