package deps

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/logger"
	"github.com/MrSnakeDoc/beacon/internal/registry"
	redisstore "github.com/MrSnakeDoc/beacon/internal/store/redis"
)

// ConnectionCounter reports open event connections.
type ConnectionCounter interface {
	Count() int
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time   // for testing, defaults to time.Now
	DiscoveryPath  string             // base path of the query surface (ex: "/discovery")
	AllowedCIDRS   []string           // IPs allowed to access operational endpoints
	AllowedOrigins []string           // CORS / websocket Origin allow-list
	TrustProxy     bool               // true if running behind a trusted reverse proxy (e.g., cloudflared)
	QueryBurst     int                // per-IP burst on query routes
	QueryPerMinute int                // per-IP refill on query routes
	Registry       *registry.Registry // in-memory service directory
	EventHandler   http.Handler       // websocket endpoint feeding the registry
	Connections    ConnectionCounter  // open event connections
	Store          *redisstore.Store  // nil when snapshot export is disabled
	LastExport     func() time.Time   // nil when snapshot export is disabled
	ExportTrigger  chan struct{}      // channel to trigger a manual snapshot export (nil if disabled)
	Metrics        http.Handler       // prometheus exposition
	Ready          func() bool        // false while starting or draining
}
