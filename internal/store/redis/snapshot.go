package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/beacon/internal/domain"
)

// DefaultSnapshotTTL applies when SaveSnapshot is given no TTL
const DefaultSnapshotTTL = 5 * time.Minute

// ErrNotFound is returned when a snapshot key does not exist
var ErrNotFound = errors.New("snapshot not found")

// Store writes directory snapshots to Redis. It never feeds the registry.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ping checks the connection, used by readiness and infra reporting
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveSnapshot stores the full directory and one key per service in a single
// pipeline. Every key expires after ttl so a dead exporter leaves nothing
// stale behind.
func (s *Store) SaveSnapshot(ctx context.Context, instances []domain.ServiceInstance, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}

	directory, err := json.Marshal(instances)
	if err != nil {
		return fmt.Errorf("failed to marshal directory: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, DirectoryKey(), directory, ttl)

	for _, inst := range instances {
		data, err := json.Marshal(inst)
		if err != nil {
			return fmt.Errorf("failed to marshal service %s: %w", inst.Name, err)
		}
		pipe.Set(ctx, ServiceKey(inst.Name), data, ttl)
		pipe.SAdd(ctx, AllServicesKey(), inst.Name)
	}
	pipe.Expire(ctx, AllServicesKey(), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// DeleteServices removes per-service keys for names no longer registered
func (s *Store) DeleteServices(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, name := range names {
		pipe.Del(ctx, ServiceKey(name))
		pipe.SRem(ctx, AllServicesKey(), name)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete services: %w", err)
	}

	return nil
}

// ExportedNames returns the names present in the last snapshot
func (s *Store) ExportedNames(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, AllServicesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get exported names: %w", err)
	}
	return names, nil
}

// GetService reads one exported service back
func (s *Store) GetService(ctx context.Context, name string) (*domain.ServiceInstance, error) {
	data, err := s.client.Get(ctx, ServiceKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	var inst domain.ServiceInstance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("failed to unmarshal service: %w", err)
	}

	return &inst, nil
}

// GetDirectory reads the full exported snapshot back
func (s *Store) GetDirectory(ctx context.Context) ([]domain.ServiceInstance, error) {
	data, err := s.client.Get(ctx, DirectoryKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get directory: %w", err)
	}

	var instances []domain.ServiceInstance
	if err := json.Unmarshal(data, &instances); err != nil {
		return nil, fmt.Errorf("failed to unmarshal directory: %w", err)
	}

	return instances, nil
}
