package profile

import (
	"context"
	"sync"

	"github.com/dropDatabas3/creatorverse/internal/domain/repository"
)

// MemoryRepository is a ProfileRepository (and UniverseRepository) kept in a map.
type MemoryRepository struct {
	mu        sync.RWMutex
	profiles  map[string]repository.ProfileRecord
	universes map[string]*repository.CreatorUniverse
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles:  map[string]repository.ProfileRecord{},
		universes: map[string]*repository.CreatorUniverse{},
	}
}

func (m *MemoryRepository) PutProfile(userID string, rec repository.ProfileRecord) {
	m.mu.Lock()
	m.profiles[userID] = rec
	m.mu.Unlock()
}

func (m *MemoryRepository) PutUniverse(u *repository.CreatorUniverse) {
	m.mu.Lock()
	m.universes[u.UserID] = u
	m.mu.Unlock()
}

func (m *MemoryRepository) FindProfile(_ context.Context, userID string) (repository.ProfileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := make(repository.ProfileRecord, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryRepository) FindUniverse(_ context.Context, userID string) (*repository.CreatorUniverse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.universes[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}
