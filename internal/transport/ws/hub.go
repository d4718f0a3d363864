package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/beacon/internal/events"
	"github.com/MrSnakeDoc/beacon/internal/logger"
	"github.com/MrSnakeDoc/beacon/internal/utils"
)

// Config tunes the transport. Zero values fall back to defaults in NewHub.
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	PingInterval    time.Duration
	PongTimeout     time.Duration
	WriteTimeout    time.Duration
	EventsPerSecond float64 // 0 = unlimited
	EventBurst      int
	AllowedOrigins  []string
	TrustProxy      bool
}

// DropObserver is told about frames that never reach the router.
type DropObserver interface {
	FrameDropped(reason string)
}

// Reasons passed to DropObserver.
const (
	DropMalformed   = "malformed"
	DropRateLimited = "rate_limited"
	DropShutdown    = "shutdown"
)

// Hub accepts event connections, gives each a stable id, and forwards decoded
// frames to the event channel. A disconnect event is emitted when a
// connection ends for any reason.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	events   chan<- events.Event
	logger   logger.Logger
	observer DropObserver

	mu      sync.RWMutex
	conns   map[string]*conn
	closing chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

type conn struct {
	id         string
	remoteAddr string
	ws         *websocket.Conn
	limiter    *rate.Limiter
	logger     logger.Logger
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a hub writing to out. observer may be nil.
func NewHub(cfg Config, out chan<- events.Event, log logger.Logger, observer DropObserver) *Hub {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 64 * 1024
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongTimeout {
		cfg.PingInterval = cfg.PongTimeout * 9 / 10
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.EventBurst < 1 {
		cfg.EventBurst = 1
	}

	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
		events:   out,
		logger:   log,
		observer: observer,
		conns:    make(map[string]*conn),
		closing:  make(chan struct{}),
	}
}

// ServeHTTP upgrades the request and starts the connection pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.closing:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed",
			logger.String("remote_addr", r.RemoteAddr),
			logger.Error(err))
		return
	}

	c := &conn{
		id:         uuid.NewString(),
		remoteAddr: utils.ClientIP(r, h.cfg.TrustProxy),
		ws:         ws,
		done:       make(chan struct{}),
	}
	if h.cfg.EventsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(h.cfg.EventsPerSecond), h.cfg.EventBurst)
	}
	c.logger = h.logger.With(
		logger.String("connection_id", c.id),
		logger.String("remote_addr", c.remoteAddr))

	if !h.add(c) {
		utils.Close(ws)
		return
	}

	c.logger.Info("event connection opened")

	h.wg.Add(2)
	go h.readPump(c)
	go h.pingLoop(c)
}

func (h *Hub) add(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.closing:
		return false
	default:
	}
	h.conns[c.id] = c
	return true
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, id)
}

// readPump owns every read on the connection and emits the disconnect event
// once the read loop ends.
func (h *Hub) readPump(c *conn) {
	defer h.wg.Done()
	defer func() {
		h.closeConn(c)
		h.remove(c.id)
		h.emit(c, events.Event{Kind: events.KindDisconnect})
		c.logger.Info("event connection closed")
	}()

	c.ws.SetReadLimit(h.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("event connection read error", logger.Error(err))
			}
			return
		}
		// Any inbound traffic proves the peer is alive.
		_ = c.ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))

		if c.limiter != nil && !c.limiter.Allow() {
			h.dropped(DropRateLimited)
			c.logger.Debug("event frame rate limited")
			continue
		}

		ev, err := decodeFrame(msg)
		if err != nil {
			h.dropped(DropMalformed)
			c.logger.Debug("malformed event frame dropped", logger.Error(err))
			continue
		}

		if !h.emit(c, ev) {
			return
		}
	}
}

// emit stamps the connection identity on ev and hands it to the router.
// It blocks while the channel is full so per-connection order is kept, and
// gives up only when the hub is shutting down.
func (h *Hub) emit(c *conn, ev events.Event) bool {
	ev.ConnectionID = c.id
	ev.RemoteAddr = c.remoteAddr

	select {
	case h.events <- ev:
		return true
	case <-h.closing:
		h.dropped(DropShutdown)
		return false
	}
}

func (h *Hub) pingLoop(c *conn) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("ping failed, closing connection", logger.Error(err))
				h.closeConn(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// closeConn closes the socket once; the blocked ReadMessage then fails and
// readPump performs the cleanup.
func (h *Hub) closeConn(c *conn) {
	c.closeOnce.Do(func() {
		close(c.done)
		utils.CloseLogged(c.ws, c.logger, "websocket")
	})
}

func (h *Hub) dropped(reason string) {
	if h.observer != nil {
		h.observer.FrameDropped(reason)
	}
}

// IsAlive reports whether connection id is still open.
func (h *Hub) IsAlive(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.conns[id]
	return ok
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.conns)
}

// Shutdown refuses new connections, sends a going-away close frame to every
// open one and waits for their pumps to exit or ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.once.Do(func() { close(h.closing) })

	h.mu.RLock()
	open := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		open = append(open, c)
	}
	h.mu.RUnlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range open {
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteTimeout))
		h.closeConn(c)
	}

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("websocket hub shutdown timed out"), ctx.Err())
	}
}
