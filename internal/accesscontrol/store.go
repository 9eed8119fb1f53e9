package accesscontrol

import (
	"context"

	"custodia/pkg/domain"
)

// Store persists role assignments. Interface-driven so the in-memory
// implementation can be swapped without rewiring business code.
type Store interface {
	Grant(ctx context.Context, identity domain.Identity, role domain.Role) error
	Revoke(ctx context.Context, identity domain.Identity, role domain.Role) error
	Has(ctx context.Context, identity domain.Identity, role domain.Role) (bool, error)
	Roles(ctx context.Context, identity domain.Identity) ([]domain.Role, error)
}
