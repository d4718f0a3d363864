package events

import (
	"context"

	"github.com/MrSnakeDoc/beacon/internal/logger"
	"github.com/MrSnakeDoc/beacon/internal/registry"
)

// Observer is notified of every event the router handles. applied is false
// when the registry dropped it (malformed input or unknown reference).
type Observer interface {
	EventHandled(kind Kind, applied bool)
}

// Router drains a single event channel into the registry, one event at a
// time, so mutations are totally ordered.
type Router struct {
	reg               *registry.Registry
	events            <-chan Event
	logger            logger.Logger
	sweepOnDisconnect bool
	observer          Observer
	done              chan struct{}
}

// NewRouter creates a router. observer may be nil.
func NewRouter(
	reg *registry.Registry,
	events <-chan Event,
	log logger.Logger,
	sweepOnDisconnect bool,
	observer Observer,
) *Router {
	return &Router{
		reg:               reg,
		events:            events,
		logger:            log,
		sweepOnDisconnect: sweepOnDisconnect,
		observer:          observer,
		done:              make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or the event channel is closed.
func (rt *Router) Run(ctx context.Context) {
	defer close(rt.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-rt.events:
			if !ok {
				return
			}
			rt.Apply(ev)
		}
	}
}

// Done is closed once Run has returned.
func (rt *Router) Done() <-chan struct{} { return rt.done }

// Apply handles a single event synchronously.
func (rt *Router) Apply(ev Event) bool {
	var applied bool

	switch ev.Kind {
	case KindRegister:
		applied = rt.reg.Register(ev.Name, ev.Port, ev.Protocol, ev.ConnectionID, ev.RemoteAddr)
		if applied {
			rt.logger.Info("endpoint registered",
				logger.String("service", ev.Name),
				logger.String("connection_id", ev.ConnectionID),
				logger.String("remote_addr", ev.RemoteAddr),
				logger.Int("port", ev.Port))
		} else {
			rt.logger.Debug("malformed register dropped",
				logger.String("service", ev.Name),
				logger.Int("port", ev.Port),
				logger.String("connection_id", ev.ConnectionID))
		}

	case KindStatus:
		applied = rt.reg.UpdateStatus(ev.Name, ev.ConnectionID, ev.Status)
		if !applied {
			rt.logger.Debug("status for unknown endpoint ignored",
				logger.String("service", ev.Name),
				logger.String("connection_id", ev.ConnectionID))
		}

	case KindUnregister:
		applied = rt.reg.Unregister(ev.Name, ev.ConnectionID)
		if applied {
			rt.logger.Info("endpoint unregistered",
				logger.String("service", ev.Name),
				logger.String("connection_id", ev.ConnectionID))
		}

	case KindDisconnect:
		if !rt.sweepOnDisconnect {
			break
		}
		if removed := rt.reg.UnregisterConnection(ev.ConnectionID); removed > 0 {
			applied = true
			rt.logger.Info("swept endpoints of closed connection",
				logger.String("connection_id", ev.ConnectionID),
				logger.Int("removed", removed))
		}

	default:
		rt.logger.Warn("unknown event kind dropped",
			logger.String("kind", string(ev.Kind)),
			logger.String("connection_id", ev.ConnectionID))
	}

	if rt.observer != nil {
		rt.observer.EventHandled(ev.Kind, applied)
	}
	return applied
}
