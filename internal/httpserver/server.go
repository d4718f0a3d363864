// internal/httpserver/server.go
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/beacon/internal/config"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/mw"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/routes"
	"github.com/MrSnakeDoc/beacon/internal/logger"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http     *http.Server
	logger   logger.Logger
	started  time.Time
	certFile string
	keyFile  string
}

// NewRouter builds the router (middlewares, route registration). Split out
// of New so handlers can be exercised through httptest.
func NewRouter(loggerClient logger.Logger, d deps.Deps) chi.Router {
	r := chi.NewRouter()

	// --- Global middlewares (safe defaults)
	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID) // X-Request-ID on each request
	r.Use(middleware.Recoverer) // never crash the process on panic
	r.Use(mw.Log(loggerClient)) // structured access logs

	// Websocket connections live far longer than any request timeout.
	r.Group(func(timed chi.Router) {
		timed.Use(middleware.Timeout(2 * time.Second))
		routes.RegisterAll(r, timed, d)
	})

	return r
}

// New builds the HTTP server.
func New(cfg *config.Config, loggerClient logger.Logger, d deps.Deps) *Server {
	s := &http.Server{
		Addr:              cfg.ListenPort,
		Handler:           NewRouter(loggerClient, d),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		// No Read/WriteTimeout: they would apply to hijacked websocket
		// connections too. Plain requests are bounded by the Timeout middleware.
	}

	return &Server{
		http:     s,
		logger:   loggerClient,
		started:  d.StartTime,
		certFile: cfg.TLSCertFile,
		keyFile:  cfg.TLSKeyFile,
	}
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	var err error
	if s.certFile != "" && s.keyFile != "" {
		s.logger.Infof("HTTPS server listening on %s", s.http.Addr)
		err = s.http.ListenAndServeTLS(s.certFile, s.keyFile)
	} else {
		s.logger.Infof("HTTP server listening on %s", s.http.Addr)
		err = s.http.ListenAndServe()
	}
	// http.ErrServerClosed is expected on graceful shutdown.
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
// Hijacked websocket connections are not tracked here; the hub closes them.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...")
	return s.http.Shutdown(ctx)
}
