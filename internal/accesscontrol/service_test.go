package accesscontrol

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

const (
	admin    = domain.Identity("acct-admin")
	alice    = domain.Identity("acct-alice")
	bob      = domain.Identity("acct-bob")
	intruder = domain.Identity("acct-intruder")
)

type ServiceSuite struct {
	suite.Suite
	svc *Service
}

func (s *ServiceSuite) SetupTest() {
	s.svc = NewService(NewInMemoryStore(), admin, slog.Default())
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestGrantRequiresAdmin() {
	ctx := context.Background()

	err := s.svc.GrantRole(ctx, intruder, alice, domain.RoleRetailer)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	err = s.svc.GrantRole(ctx, domain.Nobody, alice, domain.RoleRetailer)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	has, err := s.svc.HasRole(ctx, alice, domain.RoleRetailer)
	s.Require().NoError(err)
	s.False(has)

	s.Require().NoError(s.svc.GrantRole(ctx, admin, alice, domain.RoleRetailer))
	has, err = s.svc.HasRole(ctx, alice, domain.RoleRetailer)
	s.Require().NoError(err)
	s.True(has)
}

func (s *ServiceSuite) TestRevokeRequiresAdmin() {
	ctx := context.Background()
	s.Require().NoError(s.svc.GrantRole(ctx, admin, alice, domain.RoleServiceCenter))

	err := s.svc.RevokeRole(ctx, intruder, alice, domain.RoleServiceCenter)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.Require().NoError(s.svc.RevokeRole(ctx, admin, alice, domain.RoleServiceCenter))
	has, err := s.svc.HasRole(ctx, alice, domain.RoleServiceCenter)
	s.Require().NoError(err)
	s.False(has)

	// Revoking an unheld role is a no-op.
	s.NoError(s.svc.RevokeRole(ctx, admin, alice, domain.RoleServiceCenter))
}

func (s *ServiceSuite) TestIdentityMayHoldMultipleRoles() {
	ctx := context.Background()
	s.Require().NoError(s.svc.GrantRole(ctx, admin, bob, domain.RoleManufacturer))
	s.Require().NoError(s.svc.GrantRole(ctx, admin, bob, domain.RoleRetailer))

	roles, err := s.svc.RolesOf(ctx, bob)
	s.Require().NoError(err)
	s.ElementsMatch([]domain.Role{domain.RoleManufacturer, domain.RoleRetailer}, roles)

	any, err := s.svc.HasAnyBusinessRole(ctx, bob)
	s.Require().NoError(err)
	s.True(any)

	any, err = s.svc.HasAnyBusinessRole(ctx, alice)
	s.Require().NoError(err)
	s.False(any)

	any, err = s.svc.HasAnyBusinessRole(ctx, domain.Nobody)
	s.Require().NoError(err)
	s.False(any)
}

func (s *ServiceSuite) TestGrantValidation() {
	ctx := context.Background()

	err := s.svc.GrantRole(ctx, admin, domain.Nobody, domain.RoleRetailer)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	err = s.svc.GrantRole(ctx, admin, alice, domain.Role("superuser"))
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}
