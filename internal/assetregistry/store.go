package assetregistry

import (
	"context"

	"custodia/pkg/domain"
)

// Store persists assets, their history, and the serial-number index.
// Interface-driven so the in-memory and Postgres implementations can be
// swapped without rewiring business code.
//
// Id assignment lives in the store so that ids stay strictly increasing and
// never reused regardless of backend.
type Store interface {
	// NextID reserves and returns the next sequential asset id.
	NextID(ctx context.Context) (domain.AssetID, error)
	// Create persists a freshly minted asset and indexes its serial
	// number. The serial index is last-write-wins.
	Create(ctx context.Context, asset *Asset) error
	// Update overwrites the mutable fields and appends any new history
	// records. Existing history records are never rewritten.
	Update(ctx context.Context, asset *Asset) error
	FindByID(ctx context.Context, id domain.AssetID) (*Asset, error)
	// FindBySerial resolves a serial number through the index; when a
	// serial was reused this returns the most recently minted asset.
	FindBySerial(ctx context.Context, serial string) (*Asset, error)
	ListByOwner(ctx context.Context, owner domain.Identity) ([]*Asset, error)
}
