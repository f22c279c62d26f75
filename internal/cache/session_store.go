package cache

import (
	"context"
	"sync"

	"github.com/andresuchdata/depot-replenishment/internal/config"
	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

// SessionStore keeps the uploaded dataset and the latest calculation of each
// session. Stored values are treated as immutable: callers replace them, they
// never edit them in place.
type SessionStore interface {
	GetDataset(ctx context.Context, sessionID string) (*domain.Dataset, error)
	SaveDataset(ctx context.Context, ds *domain.Dataset) error
	GetResult(ctx context.Context, sessionID string) (*domain.CalculationResult, bool, error)
	SaveResult(ctx context.Context, sessionID string, result *domain.CalculationResult) error
	DeleteResult(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}

// NewSessionStore returns the redis store when caching is enabled and the
// in-process store otherwise.
func NewSessionStore(cfg config.CacheConfig) (SessionStore, error) {
	if !cfg.Enabled {
		return NewMemorySessionStore(), nil
	}
	return newRedisSessionStore(cfg)
}

type memorySessionStore struct {
	mu       sync.RWMutex
	datasets map[string]*domain.Dataset
	results  map[string]*domain.CalculationResult
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		datasets: make(map[string]*domain.Dataset),
		results:  make(map[string]*domain.CalculationResult),
	}
}

func (m *memorySessionStore) GetDataset(_ context.Context, sessionID string) (*domain.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.datasets[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return ds, nil
}

func (m *memorySessionStore) SaveDataset(_ context.Context, ds *domain.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.datasets[ds.SessionID] = ds
	return nil
}

func (m *memorySessionStore) GetResult(_ context.Context, sessionID string) (*domain.CalculationResult, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.datasets[sessionID]; !ok {
		return nil, false, domain.ErrSessionNotFound
	}
	res, ok := m.results[sessionID]
	return res, ok, nil
}

func (m *memorySessionStore) SaveResult(_ context.Context, sessionID string, result *domain.CalculationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.datasets[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	m.results[sessionID] = result
	return nil
}

func (m *memorySessionStore) DeleteResult(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.results, sessionID)
	return nil
}

func (m *memorySessionStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.datasets, sessionID)
	delete(m.results, sessionID)
	return nil
}
