package assetregistry

import (
	"context"
	"sort"
	"sync"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// InMemoryStore keeps the asset table, history and serial index in maps. It
// intentionally favors clarity over performance.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID domain.AssetID
	assets map[domain.AssetID]*Asset
	serial map[string]domain.AssetID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		nextID: domain.FirstAssetID,
		assets: make(map[domain.AssetID]*Asset),
		serial: make(map[string]domain.AssetID),
	}
}

func (s *InMemoryStore) NextID(_ context.Context) (domain.AssetID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id, nil
}

func (s *InMemoryStore) Create(_ context.Context, asset *Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assets[asset.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "asset id already exists")
	}
	s.assets[asset.ID] = asset.Clone()
	s.serial[asset.SerialNumber] = asset.ID
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, asset *Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assets[asset.ID]; !exists {
		return dErrors.New(dErrors.CodeNotFound, "asset not found")
	}
	s.assets[asset.ID] = asset.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.AssetID) (*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if asset, ok := s.assets[id]; ok {
		return asset.Clone(), nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
}

func (s *InMemoryStore) FindBySerial(_ context.Context, serial string) (*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.serial[serial]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "serial number not indexed")
	}
	if asset, ok := s.assets[id]; ok {
		return asset.Clone(), nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
}

func (s *InMemoryStore) ListByOwner(_ context.Context, owner domain.Identity) ([]*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := []*Asset{}
	for _, asset := range s.assets {
		if asset.Owner == owner {
			owned = append(owned, asset.Clone())
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })
	return owned, nil
}
