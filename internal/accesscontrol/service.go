// Package accesscontrol holds the role assignments (Manufacturer, Retailer,
// ServiceCenter) per identity. Grant and revoke are restricted to the single
// administrator identity fixed at construction time.
package accesscontrol

import (
	"context"
	"fmt"
	"log/slog"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Service answers role queries and applies admin-gated role mutations.
type Service struct {
	store  Store
	admin  domain.Identity
	logger *slog.Logger
}

// NewService builds the role registry. The administrator identity is set once
// here and can never change afterwards.
func NewService(store Store, admin domain.Identity, logger *slog.Logger) *Service {
	return &Service{store: store, admin: admin, logger: logger}
}

// GrantRole assigns a role to an identity. Only the administrator may call it.
func (s *Service) GrantRole(ctx context.Context, caller, target domain.Identity, role domain.Role) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if target.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "target identity cannot be empty")
	}
	if !role.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid role: "+role.String())
	}
	if err := s.store.Grant(ctx, target, role); err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	s.logger.InfoContext(ctx, "role granted",
		"target", target.String(),
		"role", role.String(),
	)
	return nil
}

// RevokeRole removes a role from an identity. Only the administrator may call
// it. Revoking a role the identity does not hold is a no-op.
func (s *Service) RevokeRole(ctx context.Context, caller, target domain.Identity, role domain.Role) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if err := s.store.Revoke(ctx, target, role); err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	s.logger.InfoContext(ctx, "role revoked",
		"target", target.String(),
		"role", role.String(),
	)
	return nil
}

// HasRole is a pure query with no side effects.
func (s *Service) HasRole(ctx context.Context, identity domain.Identity, role domain.Role) (bool, error) {
	if identity.IsZero() {
		return false, nil
	}
	return s.store.Has(ctx, identity, role)
}

// HasAnyBusinessRole reports whether the identity holds at least one of the
// business roles.
func (s *Service) HasAnyBusinessRole(ctx context.Context, identity domain.Identity) (bool, error) {
	if identity.IsZero() {
		return false, nil
	}
	roles, err := s.store.Roles(ctx, identity)
	if err != nil {
		return false, err
	}
	return len(roles) > 0, nil
}

// RolesOf lists the business roles held by an identity.
func (s *Service) RolesOf(ctx context.Context, identity domain.Identity) ([]domain.Role, error) {
	return s.store.Roles(ctx, identity)
}

func (s *Service) requireAdmin(caller domain.Identity) error {
	if caller.IsZero() || caller != s.admin {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the administrator")
	}
	return nil
}
