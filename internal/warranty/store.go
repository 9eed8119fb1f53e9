package warranty

import (
	"context"
	"sync"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Store persists warranty records, at most one per asset.
type Store interface {
	Create(ctx context.Context, w *Warranty) error
	Update(ctx context.Context, w *Warranty) error
	FindByAsset(ctx context.Context, id domain.AssetID) (*Warranty, error)
}

// InMemoryStore keeps warranties in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu         sync.RWMutex
	warranties map[domain.AssetID]*Warranty
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{warranties: make(map[domain.AssetID]*Warranty)}
}

func (s *InMemoryStore) Create(_ context.Context, w *Warranty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.warranties[w.AssetID]; exists {
		return dErrors.New(dErrors.CodeAlreadyIssued, "warranty already issued for asset")
	}
	s.warranties[w.AssetID] = w.Clone()
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, w *Warranty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.warranties[w.AssetID]; !exists {
		return dErrors.New(dErrors.CodeNotFound, "no warranty for asset")
	}
	s.warranties[w.AssetID] = w.Clone()
	return nil
}

func (s *InMemoryStore) FindByAsset(_ context.Context, id domain.AssetID) (*Warranty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.warranties[id]; ok {
		return w.Clone(), nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "no warranty for asset")
}
