package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/mw"
)

func init() {
	Register(registerDiscovery)
	RegisterStreaming(registerEvents)
}

func registerDiscovery(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.QueryBurst,
		RefillPerIPPerMin: d.QueryPerMinute,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
	})

	q := r.With(mw.CORS(d.AllowedOrigins), limit)
	q.Get(d.DiscoveryPath, handlers.Discovery(d))
	q.Get(d.DiscoveryPath+"/instance", handlers.Instance(d))
}

func registerEvents(r chi.Router, d deps.Deps) {
	if d.EventHandler == nil {
		return
	}
	r.Method("GET", d.DiscoveryPath+"/ws", d.EventHandler)
}
