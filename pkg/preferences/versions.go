package preferences

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	redisconn "github.com/colin-rod/tribe-mvp-sub000/pkg/redis"
)

// MemoryVersions is an in-process VersionSource for tests and single-node
// deployments. Versions start at zero and only ever increase.
type MemoryVersions struct {
	mu       sync.RWMutex
	versions map[uuid.UUID]uint64
}

// NewMemoryVersions creates an in-memory version counter.
func NewMemoryVersions() *MemoryVersions {
	return &MemoryVersions{versions: make(map[uuid.UUID]uint64)}
}

func (m *MemoryVersions) Current(_ context.Context, recipientID uuid.UUID) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.versions[recipientID], nil
}

func (m *MemoryVersions) Bump(_ context.Context, recipientID uuid.UUID) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[recipientID]++
	return m.versions[recipientID], nil
}

// RedisVersions is a VersionSource backed by Redis, giving every process the
// same authoritative counter so an invalidation in one instance is observed
// by cached readers in all of them.
type RedisVersions struct {
	client *redis.Client
	prefix string
}

// NewRedisVersions creates a Redis-backed version counter. Keys are stored as
// "<prefix><recipient-id>"; the default prefix is "prefs:ver:".
func NewRedisVersions(client *redis.Client, prefix string) (*RedisVersions, error) {
	if client == nil {
		return nil, ErrVersionSourceNil
	}
	if prefix == "" {
		prefix = "prefs:ver:"
	}
	return &RedisVersions{client: client, prefix: prefix}, nil
}

// ConnectRedisVersions dials Redis with the given configuration and returns a
// version counter on the resulting client. Close the client through the
// version source's Close method when done.
func ConnectRedisVersions(ctx context.Context, cfg redisconn.Config, prefix string) (*RedisVersions, error) {
	client, err := redisconn.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisVersions(client, prefix)
}

// Close releases the underlying Redis client.
func (r *RedisVersions) Close() error {
	return r.client.Close()
}

func (r *RedisVersions) Current(ctx context.Context, recipientID uuid.UUID) (uint64, error) {
	v, err := r.client.Get(ctx, r.prefix+recipientID.String()).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read preference version: %w", err)
	}
	return v, nil
}

func (r *RedisVersions) Bump(ctx context.Context, recipientID uuid.UUID) (uint64, error) {
	v, err := r.client.Incr(ctx, r.prefix+recipientID.String()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump preference version: %w", err)
	}
	return uint64(v), nil
}
