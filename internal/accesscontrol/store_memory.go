package accesscontrol

import (
	"context"
	"sync"

	"custodia/pkg/domain"
)

// InMemoryStore keeps role assignments in a map. It intentionally favors
// clarity over performance.
type InMemoryStore struct {
	mu    sync.RWMutex
	roles map[domain.Identity]map[domain.Role]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{roles: make(map[domain.Identity]map[domain.Role]bool)}
}

func (s *InMemoryStore) Grant(_ context.Context, identity domain.Identity, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roles[identity] == nil {
		s.roles[identity] = make(map[domain.Role]bool)
	}
	s.roles[identity][role] = true
	return nil
}

func (s *InMemoryStore) Revoke(_ context.Context, identity domain.Identity, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles[identity], role)
	return nil
}

func (s *InMemoryStore) Has(_ context.Context, identity domain.Identity, role domain.Role) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles[identity][role], nil
}

func (s *InMemoryStore) Roles(_ context.Context, identity domain.Identity) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	held := []domain.Role{}
	for _, role := range domain.BusinessRoles() {
		if s.roles[identity][role] {
			held = append(held, role)
		}
	}
	return held, nil
}
