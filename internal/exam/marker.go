package exam

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-proctor/internal/config"
)

// CompletionMarker records which assessments were finished within a scope
// (a browser context or a user). A finished assessment cannot be restarted
// in the same scope.
type CompletionMarker interface {
	Add(ctx context.Context, scope string, assessmentID uuid.UUID) error
	Contains(ctx context.Context, scope string, assessmentID uuid.UUID) (bool, error)
}

// MemoryMarker is a process-local CompletionMarker.
type MemoryMarker struct {
	mu   sync.RWMutex
	sets map[string]map[uuid.UUID]struct{}
}

// NewMemoryMarker creates an empty MemoryMarker.
func NewMemoryMarker() *MemoryMarker {
	return &MemoryMarker{sets: make(map[string]map[uuid.UUID]struct{})}
}

// Add implements CompletionMarker.
func (m *MemoryMarker) Add(_ context.Context, scope string, assessmentID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[scope]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		m.sets[scope] = set
	}
	set[assessmentID] = struct{}{}
	return nil
}

// Contains implements CompletionMarker.
func (m *MemoryMarker) Contains(_ context.Context, scope string, assessmentID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.sets[scope][assessmentID]
	return ok, nil
}

// RedisMarker keeps the completion sets in Redis so they survive restarts
// and are shared between server instances.
type RedisMarker struct {
	rdb *redis.Client
}

// NewRedisMarker creates a RedisMarker.
func NewRedisMarker(rdb *redis.Client) *RedisMarker {
	return &RedisMarker{rdb: rdb}
}

// Add implements CompletionMarker.
func (m *RedisMarker) Add(ctx context.Context, scope string, assessmentID uuid.UUID) error {
	if err := m.rdb.SAdd(ctx, config.CacheKey.CompletedSetKey(scope), assessmentID.String()).Err(); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// Contains implements CompletionMarker.
func (m *RedisMarker) Contains(ctx context.Context, scope string, assessmentID uuid.UUID) (bool, error) {
	ok, err := m.rdb.SIsMember(ctx, config.CacheKey.CompletedSetKey(scope), assessmentID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("check completed: %w", err)
	}
	return ok, nil
}
