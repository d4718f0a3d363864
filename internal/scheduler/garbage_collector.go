package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/logger"
	"github.com/MrSnakeDoc/beacon/internal/registry"
)

// DefaultGCInterval is used when the collector is built with no interval
const DefaultGCInterval = time.Minute

// LivenessChecker reports whether a connection id is still open.
type LivenessChecker interface {
	IsAlive(connectionID string) bool
}

// GarbageCollector removes endpoints owned by connections that are gone but
// whose disconnect never reached the registry.
type GarbageCollector struct {
	registry *registry.Registry
	live     LivenessChecker
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(
	reg *registry.Registry,
	live LivenessChecker,
	log logger.Logger,
	interval time.Duration,
) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}

	return &GarbageCollector{
		registry: reg,
		live:     live,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gc.Collect()
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect sweeps every connection the liveness checker no longer knows and
// returns the number of endpoints removed.
func (gc *GarbageCollector) Collect() int {
	removed := 0
	stale := 0

	for _, id := range gc.registry.ConnectionIDs() {
		if gc.live.IsAlive(id) {
			continue
		}
		n := gc.registry.UnregisterConnection(id)
		if n == 0 {
			continue
		}
		stale++
		removed += n
		gc.logger.Info("garbage collected stale connection",
			logger.String("connection_id", id),
			logger.Int("endpoints", n))
	}

	if removed > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("connections", stale),
			logger.Int("endpoints_removed", removed))
	} else {
		gc.logger.Debug("no stale connections to collect")
	}

	return removed
}
