package warranty

import (
	"context"

	"custodia/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/ports.go -package=mocks

// OwnershipReader is the registry view the ledger needs: claims may only be
// raised by the asset's current owner. The concrete reader is late-bound once
// during wiring to break the registry/warranty construction cycle.
type OwnershipReader interface {
	OwnerOf(ctx context.Context, id domain.AssetID) (domain.Identity, error)
}

// RoleReader gates issuance (manufacturer) and claim resolution (service
// center).
type RoleReader interface {
	HasRole(ctx context.Context, identity domain.Identity, role domain.Role) (bool, error)
}
