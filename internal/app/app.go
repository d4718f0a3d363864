package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/beacon/internal/config"
	"github.com/MrSnakeDoc/beacon/internal/domain"
	"github.com/MrSnakeDoc/beacon/internal/events"
	"github.com/MrSnakeDoc/beacon/internal/httpserver"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/logger"
	"github.com/MrSnakeDoc/beacon/internal/metrics"
	"github.com/MrSnakeDoc/beacon/internal/redis"
	"github.com/MrSnakeDoc/beacon/internal/registry"
	"github.com/MrSnakeDoc/beacon/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/beacon/internal/store/redis"
	"github.com/MrSnakeDoc/beacon/internal/transport/ws"
	"github.com/MrSnakeDoc/beacon/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	registry    *registry.Registry
	hub         *ws.Hub
	router      *events.Router
	redisClient *goredis.Client
	exporter    *scheduler.SnapshotExporter
	gc          *scheduler.GarbageCollector
	ready       atomic.Bool
}

// availability builds the query-time predicate from the configured statuses.
func availability(statuses []string) domain.Predicate {
	if len(statuses) == 0 {
		return domain.StatusPresent()
	}
	return domain.StatusIn(statuses...)
}

func New() *App {
	cfg := config.Load()

	var logOpts []logger.Option
	if cfg.LogFile != "" {
		logOpts = append(logOpts, logger.WithFile(logger.FileOptions{
			Path:       cfg.LogFile,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAgeDays: cfg.LogMaxAgeDays,
			Compress:   true,
		}))
	}
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog, logOpts...)

	reg := registry.New(availability(cfg.AvailableStatuses))
	m := metrics.New()
	m.TrackRegistry(reg)

	eventCh := make(chan events.Event, cfg.EventBuffer)
	hub := ws.NewHub(ws.Config{
		ReadBufferSize:  cfg.WSReadBufferSize,
		WriteBufferSize: cfg.WSWriteBufferSize,
		MaxMessageSize:  cfg.WSMaxMessageSize,
		PingInterval:    cfg.WSPingInterval,
		PongTimeout:     cfg.WSPongTimeout,
		WriteTimeout:    cfg.WSWriteTimeout,
		EventsPerSecond: cfg.WSEventsPerSecond,
		EventBurst:      cfg.WSEventBurst,
		AllowedOrigins:  cfg.AllowedOrigins,
		TrustProxy:      cfg.TrustProxy,
	}, eventCh, loggerClient.With(logger.String("component", "ws")), m)
	m.TrackConnections(hub.Count)

	router := events.NewRouter(reg, eventCh, loggerClient.With(logger.String("component", "router")),
		cfg.SweepOnDisconnect, m)

	// The stale-connection sweep would contradict a registry that keeps
	// endpoints after disconnect, so it only runs alongside the sweep.
	var gc *scheduler.GarbageCollector
	if cfg.SweepOnDisconnect {
		gc = scheduler.NewGarbageCollector(reg, hub, loggerClient, cfg.GCInterval)
	}

	a := &App{
		cfg:      cfg,
		logger:   loggerClient,
		registry: reg,
		hub:      hub,
		router:   router,
		gc:       gc,
	}

	// Redis is optional and best-effort: a failure only disables the export.
	var store *redisstore.Store
	var exportTrigger chan struct{}
	if cfg.RedisEnabled() {
		client, err := redis.Connect(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Warn("redis unavailable, snapshot export disabled", logger.Error(err))
		} else {
			a.redisClient = client
			store = redisstore.NewStore(client)
			exportTrigger = make(chan struct{}, 1)
			a.exporter = scheduler.NewSnapshotExporter(reg, store, loggerClient, cfg.ExportInterval, exportTrigger)
		}
	} else {
		loggerClient.Info("BEACON_REDIS_ADDR not set, snapshot export disabled")
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		DiscoveryPath:  cfg.DiscoveryPath,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
		QueryBurst:     cfg.QueryRateBurst,
		QueryPerMinute: cfg.QueryRatePerMinute,
		Registry:       reg,
		EventHandler:   hub,
		Connections:    hub,
		Store:          store,
		ExportTrigger:  exportTrigger,
		Metrics:        m.Handler(),
		Ready:          a.ready.Load,
	}
	if a.exporter != nil {
		d.LastExport = a.exporter.LastExport
	}

	a.server = httpserver.New(cfg, loggerClient, d)
	return a
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Beacon v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Beacon %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The router outlives ctx so disconnects emitted while draining still land.
	routerCtx, stopRouter := context.WithCancel(context.Background())
	defer stopRouter()
	go a.router.Run(routerCtx)

	if a.gc != nil {
		a.gc.Start(ctx)
		a.logger.Info("garbage collector started",
			logger.Duration("interval", a.cfg.GCInterval))
	}

	if a.exporter != nil {
		a.exporter.Start(ctx)
		a.logger.Info("snapshot exporter started",
			logger.Duration("interval", a.cfg.ExportInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	a.ready.Store(true)
	a.logger.Info("registry ready",
		logger.String("path", a.cfg.DiscoveryPath),
		logger.Bool("sweep_on_disconnect", a.cfg.SweepOnDisconnect))

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}
	a.ready.Store(false)

	return errors.Join(runErr, a.shutdown())
}

// shutdown stops intake first (HTTP, then websocket), then the consumers.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.server.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
	}
	if err := a.hub.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close event connections: %w", err))
	}

	if a.gc != nil {
		a.gc.Stop()
	}
	if a.exporter != nil {
		a.exporter.Stop()
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	instances, endpoints := a.registry.Count()
	a.logger.Info("✅ Beacon stopped",
		logger.Int("instances", instances),
		logger.Int("endpoints", endpoints))
	_ = a.logger.Sync()

	return errors.Join(errs...)
}
