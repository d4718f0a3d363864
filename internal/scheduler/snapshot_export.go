package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/logger"
	"github.com/MrSnakeDoc/beacon/internal/registry"
	redisstore "github.com/MrSnakeDoc/beacon/internal/store/redis"
)

// SnapshotExporter periodically writes the registry snapshot to Redis
type SnapshotExporter struct {
	registry      *registry.Registry
	store         *redisstore.Store
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}

	mu       sync.Mutex
	exported map[string]struct{} // nil until the first successful export
	last     time.Time
}

// NewSnapshotExporter creates a new snapshot exporter
func NewSnapshotExporter(
	reg *registry.Registry,
	store *redisstore.Store,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *SnapshotExporter {
	return &SnapshotExporter{
		registry:      reg,
		store:         store,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start exports once and then on every tick or manual trigger
func (se *SnapshotExporter) Start(ctx context.Context) {
	se.exportLogged(ctx)

	ticker := time.NewTicker(se.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				se.exportLogged(ctx)
			case <-se.manualTrigger:
				se.logger.Info("manual export triggered")
				se.exportLogged(ctx)
			case <-se.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the exporter
func (se *SnapshotExporter) Stop() {
	close(se.stopCh)
}

func (se *SnapshotExporter) exportLogged(ctx context.Context) {
	if err := se.Export(ctx); err != nil {
		// Best effort: the registry keeps serving from memory.
		se.logger.Warn("failed to export snapshot to redis", logger.Error(err))
	}
}

// Export writes the current snapshot and deletes the keys of services that
// disappeared since the previous export.
func (se *SnapshotExporter) Export(ctx context.Context) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	snapshot := se.registry.ListAll()

	current := make(map[string]struct{}, len(snapshot))
	for _, inst := range snapshot {
		current[inst.Name] = struct{}{}
	}

	previous := se.exported
	if previous == nil {
		// First export of this process: clean up whatever an earlier run left.
		names, err := se.store.ExportedNames(ctx)
		if err != nil {
			return err
		}
		previous = make(map[string]struct{}, len(names))
		for _, n := range names {
			previous[n] = struct{}{}
		}
	}

	var removed []string
	for name := range previous {
		if _, ok := current[name]; !ok {
			removed = append(removed, name)
		}
	}

	if err := se.store.DeleteServices(ctx, removed); err != nil {
		return err
	}
	if err := se.store.SaveSnapshot(ctx, snapshot, 3*se.interval); err != nil {
		return fmt.Errorf("export of %d services: %w", len(snapshot), err)
	}

	se.exported = current
	se.last = time.Now()

	se.logger.Debug("snapshot exported to redis",
		logger.Int("services", len(snapshot)),
		logger.Int("removed", len(removed)))

	return nil
}

// LastExport returns the time of the last successful export
func (se *SnapshotExporter) LastExport() time.Time {
	se.mu.Lock()
	defer se.mu.Unlock()

	return se.last
}
