package notify

import (
	"context"
	"sync"

	"custodia/pkg/domain"
)

// Store persists notifications for the read-side endpoint.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAsset(ctx context.Context, id domain.AssetID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// InMemoryStore keeps a bounded backlog of notifications. When the cap is
// exceeded the oldest events are dropped.
type InMemoryStore struct {
	mu     sync.RWMutex
	cap    int
	events []Event
}

const defaultBacklog = 4096

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{cap: defaultBacklog}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if len(s.events) > s.cap {
		s.events = s.events[len(s.events)-s.cap:]
	}
	return nil
}

func (s *InMemoryStore) ListByAsset(_ context.Context, id domain.AssetID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := []Event{}
	for _, event := range s.events {
		if event.AssetID == id {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	recent := make([]Event, limit)
	copy(recent, s.events[len(s.events)-limit:])
	return recent, nil
}
