package warranty

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"custodia/internal/notify"
	"custodia/internal/warranty/mocks"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/secrets"
)

const (
	maker  = domain.Identity("acct-maker")
	owner  = domain.Identity("acct-owner")
	tech   = domain.Identity("acct-tech")
	rando  = domain.Identity("acct-rando")
	tested = domain.AssetID(1000)
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event notify.Event) {
	p.events = append(p.events, event)
}

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	ownership *mocks.MockOwnershipReader
	roles     *mocks.MockRoleReader
	svc       *Service
	cap       Capability
	now       time.Time
	published *recordingPublisher
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ownership = mocks.NewMockOwnershipReader(s.ctrl)
	s.roles = mocks.NewMockRoleReader(s.ctrl)

	secret, err := secrets.Generate()
	s.Require().NoError(err)
	hash, err := secrets.Hash(secret)
	s.Require().NoError(err)

	s.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.published = &recordingPublisher{}
	s.svc = NewService(NewInMemoryStore(), s.roles, hash, slog.Default(),
		WithClock(func() time.Time { return s.now }),
		WithPublisher(s.published))
	s.Require().NoError(s.svc.BindRegistry(s.ownership))
	s.cap, err = s.svc.BindCoordinator(secret)
	s.Require().NoError(err)

	s.ownership.EXPECT().OwnerOf(gomock.Any(), tested).Return(owner, nil).AnyTimes()
	s.roles.EXPECT().HasRole(gomock.Any(), tech, domain.RoleServiceCenter).Return(true, nil).AnyTimes()
	s.roles.EXPECT().HasRole(gomock.Any(), gomock.Not(tech), domain.RoleServiceCenter).Return(false, nil).AnyTimes()
	s.roles.EXPECT().HasRole(gomock.Any(), maker, domain.RoleManufacturer).Return(true, nil).AnyTimes()
	s.roles.EXPECT().HasRole(gomock.Any(), gomock.Not(maker), domain.RoleManufacturer).Return(false, nil).AnyTimes()
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) advanceDays(n int) {
	s.now = s.now.AddDate(0, 0, n)
}

func (s *ServiceSuite) issue(maxClaims int) {
	s.Require().NoError(s.svc.Issue(context.Background(), s.cap, domain.Nobody, tested, 365, maxClaims))
}

func (s *ServiceSuite) TestIssueRequiresCapabilityOrManufacturer() {
	ctx := context.Background()

	err := s.svc.Issue(ctx, Capability{}, rando, tested, 365, 1)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.NoError(s.svc.Issue(ctx, Capability{}, maker, tested, 365, 1))
}

func (s *ServiceSuite) TestIssueIsOncePerAsset() {
	ctx := context.Background()
	s.issue(1)
	err := s.svc.Issue(ctx, s.cap, domain.Nobody, tested, 365, 1)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyIssued))
}

func (s *ServiceSuite) TestIssueValidation() {
	ctx := context.Background()
	err := s.svc.Issue(ctx, s.cap, domain.Nobody, tested, 0, 1)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	err = s.svc.Issue(ctx, s.cap, domain.Nobody, tested, 365, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestIssueUnknownAsset() {
	ctx := context.Background()
	unknown := domain.AssetID(4242)
	s.ownership.EXPECT().OwnerOf(gomock.Any(), unknown).
		Return(domain.Nobody, dErrors.New(dErrors.CodeNotFound, "asset not found"))
	err := s.svc.Issue(ctx, s.cap, domain.Nobody, unknown, 365, 1)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRequestServiceOwnerOnly() {
	ctx := context.Background()
	s.issue(1)

	err := s.svc.RequestService(ctx, rando, tested, "screen flicker")
	s.True(dErrors.HasCode(err, dErrors.CodeNotOwner))

	s.NoError(s.svc.RequestService(ctx, owner, tested, "screen flicker"))
	status, err := s.svc.GetStatus(ctx, tested)
	s.Require().NoError(err)
	s.Equal(domain.WarrantyPending, status)
}

func (s *ServiceSuite) TestRequestWhilePendingIsInvalidState() {
	ctx := context.Background()
	s.issue(2)
	s.Require().NoError(s.svc.RequestService(ctx, owner, tested, "first"))

	err := s.svc.RequestService(ctx, owner, tested, "second")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestClaimLifecycleToFulfilled() {
	ctx := context.Background()
	s.issue(1)

	s.Require().NoError(s.svc.RequestService(ctx, owner, tested, "dead pixel"))
	s.Require().NoError(s.svc.ApproveClaim(ctx, tech, tested, "panel replaced"))

	w, status, err := s.svc.Get(ctx, tested)
	s.Require().NoError(err)
	s.Equal(domain.WarrantyFulfilled, status)
	s.Equal(1, w.ClaimedCount)
	s.Require().Len(w.ServiceLog, 2)
	s.Equal(LogApproved, w.ServiceLog[1].Kind)

	// Fulfilled stays ClaimLimitReached forever, even after expiry.
	err = s.svc.RequestService(ctx, owner, tested, "again")
	s.True(dErrors.HasCode(err, dErrors.CodeClaimLimitReached))
	s.advanceDays(1000)
	err = s.svc.RequestService(ctx, owner, tested, "again")
	s.True(dErrors.HasCode(err, dErrors.CodeClaimLimitReached))
}

func (s *ServiceSuite) TestApproveBelowCapReturnsToActive() {
	ctx := context.Background()
	s.issue(2)

	s.Require().NoError(s.svc.RequestService(ctx, owner, tested, "first"))
	s.Require().NoError(s.svc.ApproveClaim(ctx, tech, tested, "fixed"))

	status, err := s.svc.GetStatus(ctx, tested)
	s.Require().NoError(err)
	s.Equal(domain.WarrantyActive, status)

	s.Require().NoError(s.svc.RequestService(ctx, owner, tested, "second"))
	s.Require().NoError(s.svc.ApproveClaim(ctx, tech, tested, "fixed again"))

	w, status, err := s.svc.Get(ctx, tested)
	s.Require().NoError(err)
	s.Equal(domain.WarrantyFulfilled, status)
	s.Equal(2, w.ClaimedCount)
}

func (s *ServiceSuite) TestClaimResolvedEventCarriesCount() {
	ctx := context.Background()
	s.issue(2)

	s.Require().NoError(s.svc.RequestService(ctx, owner, tested, "first"))
	s.Require().NoError(s.svc.ApproveClaim(ctx, tech, tested, "fixed"))
	s.Require().NoError(s.svc.RequestService(ctx, owner, tested, "second"))
	s.Require().NoError(s.svc.ApproveClaim(ctx, tech, tested, "fixed again"))

	var resolved []notify.Event
	for _, e := range s.published.events {
		if e.Type == notify.EventClaimResolved {
			resolved = append(resolved, e)
		}
	}
	s.Require().Len(resolved, 2)
	s.Equal(tech, resolved[0].Actor)
	s.Equal(1, resolved[0].ClaimCount)
	s.Equal(2, resolved[1].ClaimCount)
}

func (s *ServiceSuite) TestRejectLeavesCounterUntouched() {
	ctx := context.Background()
	s.issue(1)

	s.Require().NoError(s.svc.RequestService(ctx, owner, tested, "scratch"))
	s.Require().NoError(s.svc.RejectClaim(ctx, tech, tested, "cosmetic damage not covered"))

	w, status, err := s.svc.Get(ctx, tested)
	s.Require().NoError(err)
	s.Equal(domain.WarrantyActive, status)
	s.Equal(0, w.ClaimedCount)
	s.Equal(LogRejected, w.ServiceLog[len(w.ServiceLog)-1].Kind)

	// The claim allowance survives a rejection.
	s.NoError(s.svc.RequestService(ctx, owner, tested, "actual defect"))
}

func (s *ServiceSuite) TestResolutionRequiresServiceCenter() {
	ctx := context.Background()
	s.issue(1)
	s.Require().NoError(s.svc.RequestService(ctx, owner, tested, "defect"))

	err := s.svc.ApproveClaim(ctx, rando, tested, "")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	err = s.svc.RejectClaim(ctx, rando, tested, "")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestResolutionWithoutPendingClaim() {
	ctx := context.Background()
	s.issue(1)

	err := s.svc.ApproveClaim(ctx, tech, tested, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	err = s.svc.RejectClaim(ctx, tech, tested, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestLazyExpiry() {
	ctx := context.Background()
	s.issue(1)

	s.advanceDays(100)
	valid, err := s.svc.IsValid(ctx, tested)
	s.Require().NoError(err)
	s.True(valid)

	s.advanceDays(266)
	valid, err = s.svc.IsValid(ctx, tested)
	s.Require().NoError(err)
	s.False(valid)

	// The query reports Expired while the stored field still reads Active.
	status, err := s.svc.GetStatus(ctx, tested)
	s.Require().NoError(err)
	s.Equal(domain.WarrantyExpired, status)
	w, _, err := s.svc.Get(ctx, tested)
	s.Require().NoError(err)
	s.Equal(domain.WarrantyActive, w.LastRecordedStatus)

	err = s.svc.RequestService(ctx, owner, tested, "too late")
	s.True(dErrors.HasCode(err, dErrors.CodeWarrantyExpired))
}

func (s *ServiceSuite) TestStatusQueriesWithoutWarranty() {
	ctx := context.Background()

	status, err := s.svc.GetStatus(ctx, tested)
	s.Require().NoError(err)
	s.Equal(domain.WarrantyNone, status)

	valid, err := s.svc.IsValid(ctx, tested)
	s.Require().NoError(err)
	s.False(valid)

	err = s.svc.RequestService(ctx, owner, tested, "no coverage")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestBindRegistryIsOneShot() {
	err := s.svc.BindRegistry(s.ownership)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestBindCoordinatorIsOneShot() {
	_, err := s.svc.BindCoordinator("anything")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}
