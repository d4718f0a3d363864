package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	TLSCertFile     string        // serve HTTPS when both cert and key are set
	TLSKeyFile      string

	LogLevel      string // "debug" | "info" | "warn" | "error"
	PrettyLog     bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile       string // optional rotating JSON log file
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Discovery
	DiscoveryPath     string        // base path of the query surface (ex: "/discovery")
	AvailableStatuses []string      // statuses counted as available, empty => any reported status
	SweepOnDisconnect bool          // closed connection => unregister all its endpoints
	GCInterval        time.Duration // interval of the stale connection sweep
	EventBuffer       int           // capacity of the inbound event channel

	// WebSocket transport
	WSReadBufferSize  int
	WSWriteBufferSize int
	WSMaxMessageSize  int64         // bytes, larger frames close the connection
	WSPingInterval    time.Duration // must be < WSPongTimeout
	WSPongTimeout     time.Duration
	WSWriteTimeout    time.Duration
	WSEventsPerSecond float64 // per connection, 0 = unlimited
	WSEventBurst      int
	AllowedOrigins    []string // optional Origin allow-list, supports "*.example.com"

	// Query rate limiting (per client IP)
	QueryRateBurst     int
	QueryRatePerMinute int

	// Redis snapshot export (optional, empty addr disables)
	RedisAddr             string
	RedisUser             string
	RedisPassword         string
	RedisPasswordRequired bool
	RedisDB               int
	RedisDT               time.Duration // dial timeout
	RedisRT               time.Duration // read timeout
	RedisWT               time.Duration // write timeout
	RedisMaxWait          time.Duration // max wait between retries
	RedisPingTimeout      time.Duration
	RedisPoolSize         int
	RedisConnectTimeout   time.Duration // total time to retry connecting
	RedisRetryInterval    time.Duration // initial wait between retries, grows exponentially
	RedisWarnThreshold    int
	ExportInterval        time.Duration

	AllowedCIDRS []string // optional, restrict access to operational endpoints
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

// RedisEnabled reports whether snapshot export is configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// TLSEnabled reports whether the server should terminate TLS itself.
func (c *Config) TLSEnabled() bool { return c.TLSCertFile != "" && c.TLSKeyFile != "" }

func Load() *Config {
	if path := os.Getenv("BEACON_CONFIG_FILE"); path != "" {
		values, err := loadFile(path)
		if err != nil {
			panic(fmt.Sprintf("❌ FATAL: %v", err))
		}
		fileValues = values
	}

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("BEACON_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("BEACON_SHUTDOWN_TIMEOUT", 5*time.Second),
		TLSCertFile:     getenv("BEACON_TLS_CERT_FILE", ""),
		TLSKeyFile:      getenv("BEACON_TLS_KEY_FILE", ""),

		// Logging
		LogLevel:      getenv("BEACON_LOG_LEVEL", "info"),
		PrettyLog:     mustBool("BEACON_PRETTY_LOG", true),
		LogFile:       getenv("BEACON_LOG_FILE", ""),
		LogMaxSizeMB:  getenvInt("BEACON_LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getenvInt("BEACON_LOG_MAX_BACKUPS", 10),
		LogMaxAgeDays: getenvInt("BEACON_LOG_MAX_AGE_DAYS", 30),

		// Discovery
		DiscoveryPath:     normalizePath(getenv("BEACON_DISCOVERY_PATH", "/discovery")),
		AvailableStatuses: splitAndTrim(getenv("BEACON_AVAILABLE_STATUSES", "")),
		SweepOnDisconnect: mustBool("BEACON_SWEEP_ON_DISCONNECT", true),
		GCInterval:        mustDuration("BEACON_GC_INTERVAL", time.Minute),
		EventBuffer:       getenvInt("BEACON_EVENT_BUFFER", 1024),

		// WebSocket
		WSReadBufferSize:  getenvInt("BEACON_WS_READ_BUFFER", 1024),
		WSWriteBufferSize: getenvInt("BEACON_WS_WRITE_BUFFER", 1024),
		WSMaxMessageSize:  int64(getenvInt("BEACON_WS_MAX_MESSAGE_SIZE", 64*1024)),
		WSPingInterval:    mustDuration("BEACON_WS_PING_INTERVAL", 25*time.Second),
		WSPongTimeout:     mustDuration("BEACON_WS_PONG_TIMEOUT", 60*time.Second),
		WSWriteTimeout:    mustDuration("BEACON_WS_WRITE_TIMEOUT", 10*time.Second),
		WSEventsPerSecond: getenvFloat("BEACON_WS_EVENTS_PER_SECOND", 20),
		WSEventBurst:      getenvInt("BEACON_WS_EVENT_BURST", 40),
		AllowedOrigins:    splitAndTrim(getenv("BEACON_ALLOWED_ORIGINS", "")),

		// Query rate limiting
		QueryRateBurst:     getenvInt("BEACON_QUERY_RATE_BURST", 60),
		QueryRatePerMinute: getenvInt("BEACON_QUERY_RATE_PER_MINUTE", 600),

		// Redis settings
		RedisAddr:             getenv("BEACON_REDIS_ADDR", ""),
		RedisUser:             getenv("BEACON_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("BEACON_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("BEACON_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("BEACON_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),
		ExportInterval:        mustDuration("BEACON_EXPORT_INTERVAL", 30*time.Second),

		// Access restrictions
		AllowedCIDRS: parseAllowedIPs(getenv("BEACON_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("BEACON_TRUST_PROXY", false),
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// Validate rejects combinations that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.RedisEnabled() && c.RedisPasswordRequired && c.RedisPassword == "" {
		return fmt.Errorf("BEACON_REDIS_PASSWORD is required when BEACON_REDIS_PASSWORD_REQUIRED=true")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("BEACON_TLS_CERT_FILE and BEACON_TLS_KEY_FILE must be set together")
	}
	if c.WSPingInterval >= c.WSPongTimeout {
		return fmt.Errorf("BEACON_WS_PING_INTERVAL (%v) must be shorter than BEACON_WS_PONG_TIMEOUT (%v)",
			c.WSPingInterval, c.WSPongTimeout)
	}
	if c.EventBuffer < 1 {
		return fmt.Errorf("BEACON_EVENT_BUFFER must be >= 1, got %d", c.EventBuffer)
	}
	if c.GCInterval <= 0 || c.ExportInterval <= 0 {
		return fmt.Errorf("BEACON_GC_INTERVAL and BEACON_EXPORT_INTERVAL must be > 0")
	}
	return nil
}

// helpers

// fileValues holds values loaded from BEACON_CONFIG_FILE. Environment
// variables always take precedence over them.
var fileValues map[string]string

func lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fileValues[key]
}

func getenv(key, def string) string {
	if v := lookup(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := lookup(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := lookup(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := lookup(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// normalizePath returns p with a single leading slash and no trailing one.
// An empty or root path falls back to "/discovery".
func normalizePath(p string) string {
	p = "/" + strings.Trim(strings.TrimSpace(p), "/")
	if p == "/" {
		return "/discovery"
	}
	return p
}
