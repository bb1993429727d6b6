// internal/profile/store.go
package profile

import (
	"context"
	"errors"
	"sync"

	"github.com/jason-s-yu/jackpot/internal/models"
)

var ErrNotFound = errors.New("profile not found")

// Store persists participant profiles across process restarts.
type Store interface {
	LoadAll(ctx context.Context) (map[string]models.Profile, error)
	Save(ctx context.Context, p models.Profile) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps profiles for the lifetime of the process only. It is used
// when no database is configured and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]models.Profile)}
}

func (s *MemoryStore) LoadAll(_ context.Context) (map[string]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Profile, len(s.profiles))
	for id, p := range s.profiles {
		out[id] = p
	}
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; !ok {
		return ErrNotFound
	}
	delete(s.profiles, id)
	return nil
}

// Get returns a single profile.
func (s *MemoryStore) Get(id string) (models.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	return p, ok
}
