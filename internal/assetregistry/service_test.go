package assetregistry

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/secrets"
)

const (
	maker    = domain.Identity("acct-maker")
	reseller = domain.Identity("acct-reseller")
	carol    = domain.Identity("acct-carol")
	dave     = domain.Identity("acct-dave")
)

type fakeCache struct {
	entries map[string]*Verification
	hits    int
	onSet   func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*Verification)}
}

func (f *fakeCache) Get(_ context.Context, serial string) (*Verification, bool) {
	v, ok := f.entries[serial]
	if ok {
		f.hits++
	}
	return v, ok
}

func (f *fakeCache) Set(_ context.Context, serial string, v *Verification) {
	if f.onSet != nil {
		f.onSet()
	}
	f.entries[serial] = v
}

func (f *fakeCache) Invalidate(_ context.Context, serial string) {
	delete(f.entries, serial)
}

// fakeRoles marks maker and reseller as business-role holders; everyone else
// is a plain consumer.
type fakeRoles struct{}

func (fakeRoles) HasAnyBusinessRole(_ context.Context, identity domain.Identity) (bool, error) {
	return identity == maker || identity == reseller, nil
}

type ServiceSuite struct {
	suite.Suite
	svc    *Service
	cap    Capability
	cache  *fakeCache
	now    time.Time
	secret string
}

func (s *ServiceSuite) SetupTest() {
	s.buildService(false)
}

func (s *ServiceSuite) buildService(allowPeer bool) {
	secret, err := secrets.Generate()
	s.Require().NoError(err)
	hash, err := secrets.Hash(secret)
	s.Require().NoError(err)

	s.secret = secret
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.cache = newFakeCache()
	s.svc = NewService(NewInMemoryStore(), fakeRoles{}, hash, slog.Default(),
		WithClock(func() time.Time { return s.now }),
		WithCache(s.cache),
		WithConsumerTransfers(allowPeer),
	)
	s.cap, err = s.svc.BindCoordinator(secret)
	s.Require().NoError(err)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) mint(serial string) *Asset {
	asset, err := s.svc.Mint(context.Background(), s.cap, MintParams{
		Owner:               maker,
		SerialNumber:        serial,
		ModelDetails:        "X-200 Telescope",
		ManufacturerDetails: "Orion Optics",
		WarrantyTermsRef:    "terms/v3",
		Price:               1000,
		Listed:              true,
	})
	s.Require().NoError(err)
	return asset
}

func (s *ServiceSuite) TestBindCoordinatorIsOneShot() {
	_, err := s.svc.BindCoordinator(s.secret)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestBindCoordinatorRejectsWrongSecret() {
	hash, err := secrets.Hash("right")
	s.Require().NoError(err)
	svc := NewService(NewInMemoryStore(), fakeRoles{}, hash, slog.Default())
	_, err = svc.BindCoordinator("wrong")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	// The failed attempt must not consume the binding.
	_, err = svc.BindCoordinator("right")
	s.NoError(err)
}

func (s *ServiceSuite) TestMintRequiresCapability() {
	_, err := s.svc.Mint(context.Background(), Capability{}, MintParams{
		Owner:        maker,
		SerialNumber: "SN-1",
		ModelDetails: "X-200",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestMintAssignsSequentialIDsAndGenesisRecord() {
	first := s.mint("SN-1")
	second := s.mint("SN-2")

	s.Equal(domain.FirstAssetID, first.ID)
	s.Equal(first.ID+1, second.ID)

	s.Require().Len(first.History, 1)
	s.Equal(domain.Nobody, first.History[0].From)
	s.Equal(maker, first.History[0].To)
	s.Equal(domain.EventMintListed, first.History[0].Event)
	s.Equal(s.now, first.History[0].At)
}

func (s *ServiceSuite) TestSerialReuseRepointsIndex() {
	ctx := context.Background()
	old := s.mint("SN-DUP")
	newer := s.mint("SN-DUP")

	v, err := s.svc.Verify(ctx, "SN-DUP")
	s.Require().NoError(err)
	s.Equal(newer.ID, v.ID)

	// The older asset stays addressable by id.
	got, err := s.svc.Get(ctx, old.ID)
	s.Require().NoError(err)
	s.Equal(old.ID, got.ID)
}

func (s *ServiceSuite) TestExecuteTransferClearsMarketState() {
	ctx := context.Background()
	asset := s.mint("SN-1")
	s.Require().NoError(s.svc.Approve(ctx, maker, asset.ID, dave))

	err := s.svc.ExecuteTransfer(ctx, s.cap, maker, reseller, asset.ID, domain.EventDistributionSale)
	s.Require().NoError(err)

	got, err := s.svc.Get(ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal(reseller, got.Owner)
	s.False(got.Listed)
	s.True(got.Approved.IsZero())
	s.Require().Len(got.History, 2)
	s.Equal(domain.EventDistributionSale, got.History[1].Event)
	s.Equal(maker, got.History[1].From)
	s.Equal(reseller, got.History[1].To)
}

func (s *ServiceSuite) TestExecuteTransferRequiresCapability() {
	asset := s.mint("SN-1")
	err := s.svc.ExecuteTransfer(context.Background(), Capability{}, maker, reseller, asset.ID, domain.EventDistributionSale)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestExecuteTransferRejectsStaleSeller() {
	ctx := context.Background()
	asset := s.mint("SN-1")
	s.Require().NoError(s.svc.ExecuteTransfer(ctx, s.cap, maker, reseller, asset.ID, domain.EventDistributionSale))

	// Replaying a sale computed against the previous owner must not move
	// ownership or append to the history.
	err := s.svc.ExecuteTransfer(ctx, s.cap, maker, carol, asset.ID, domain.EventDistributionSale)
	s.True(dErrors.HasCode(err, dErrors.CodeNotOwner))

	got, err := s.svc.Get(ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal(reseller, got.Owner)
	s.Len(got.History, 2)
}

func (s *ServiceSuite) TestRecordTransferAppendsWithoutMovingOwnership() {
	ctx := context.Background()
	asset := s.mint("SN-1")

	err := s.svc.RecordTransfer(ctx, s.cap, asset.ID, maker, reseller, domain.EventDistributionSale)
	s.Require().NoError(err)

	got, err := s.svc.Get(ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal(maker, got.Owner)
	s.True(got.Listed)
	s.Require().Len(got.History, 2)
	s.Equal(domain.EventDistributionSale, got.History[1].Event)
	s.Equal(reseller, got.History[1].To)

	err = s.svc.RecordTransfer(ctx, Capability{}, asset.ID, maker, reseller, domain.EventDistributionSale)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestApproveRequiresOwner() {
	ctx := context.Background()
	asset := s.mint("SN-1")

	err := s.svc.Approve(ctx, carol, asset.ID, dave)
	s.True(dErrors.HasCode(err, dErrors.CodeNotOwner))

	s.Require().NoError(s.svc.Approve(ctx, maker, asset.ID, dave))
	got, err := s.svc.Get(ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal(dave, got.Approved)
}

func (s *ServiceSuite) TestPeerTransferGuards() {
	ctx := context.Background()
	asset := s.mint("SN-1")

	// Still listed from mint, so the transfer is refused.
	err := s.svc.Transfer(ctx, maker, maker, carol, asset.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	s.Require().NoError(s.svc.SetMarketInfo(ctx, s.cap, asset.ID, 0, false))

	// from must match the current owner.
	err = s.svc.Transfer(ctx, maker, carol, dave, asset.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotOwner))

	// Only the owner or delegate may initiate.
	err = s.svc.Transfer(ctx, carol, maker, dave, asset.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotOwner))

	s.Require().NoError(s.svc.Transfer(ctx, maker, maker, carol, asset.ID))
	owner, err := s.svc.OwnerOf(ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal(carol, owner)

	got, err := s.svc.Get(ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal(domain.EventPeerTransfer, got.History[len(got.History)-1].Event)
}

func (s *ServiceSuite) TestConsumerToConsumerTransferBlockedByDefault() {
	ctx := context.Background()
	asset := s.mint("SN-1")
	s.Require().NoError(s.svc.SetMarketInfo(ctx, s.cap, asset.ID, 0, false))
	s.Require().NoError(s.svc.Transfer(ctx, maker, maker, carol, asset.ID))

	// Neither carol nor dave holds a business role.
	err := s.svc.Transfer(ctx, carol, carol, dave, asset.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeRoleRestricted))

	// Back to a business role holder is fine.
	s.NoError(s.svc.Transfer(ctx, carol, carol, reseller, asset.ID))
}

func (s *ServiceSuite) TestConsumerToConsumerTransferWhenEnabled() {
	s.buildService(true)
	ctx := context.Background()
	asset := s.mint("SN-1")
	s.Require().NoError(s.svc.SetMarketInfo(ctx, s.cap, asset.ID, 0, false))
	s.Require().NoError(s.svc.Transfer(ctx, maker, maker, carol, asset.ID))

	s.Require().NoError(s.svc.Transfer(ctx, carol, carol, dave, asset.ID))
	owner, err := s.svc.OwnerOf(ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal(dave, owner)
}

func (s *ServiceSuite) TestPeerTransferByApprovedDelegate() {
	ctx := context.Background()
	asset := s.mint("SN-1")
	s.Require().NoError(s.svc.SetMarketInfo(ctx, s.cap, asset.ID, 0, false))
	s.Require().NoError(s.svc.Approve(ctx, maker, asset.ID, dave))

	s.Require().NoError(s.svc.Transfer(ctx, dave, maker, carol, asset.ID))
	owner, err := s.svc.OwnerOf(ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal(carol, owner)
}

func (s *ServiceSuite) TestVerifyReadsThroughCache() {
	ctx := context.Background()
	asset := s.mint("SN-1")

	v, err := s.svc.Verify(ctx, "SN-1")
	s.Require().NoError(err)
	s.Equal(asset.ID, v.ID)
	s.Equal(0, s.cache.hits)

	_, err = s.svc.Verify(ctx, "SN-1")
	s.Require().NoError(err)
	s.Equal(1, s.cache.hits)

	// A transfer invalidates the cached aggregate.
	s.Require().NoError(s.svc.ExecuteTransfer(ctx, s.cap, maker, reseller, asset.ID, domain.EventDistributionSale))
	v, err = s.svc.Verify(ctx, "SN-1")
	s.Require().NoError(err)
	s.Equal(reseller, v.Owner)
}

func (s *ServiceSuite) TestVerifyDropsEntryCachedAcrossMutation() {
	ctx := context.Background()
	asset := s.mint("SN-1")

	// Interleave a transfer between Verify's store read and its cache write.
	s.cache.onSet = func() {
		s.cache.onSet = nil
		s.Require().NoError(s.svc.ExecuteTransfer(ctx, s.cap, maker, reseller, asset.ID, domain.EventDistributionSale))
	}
	_, err := s.svc.Verify(ctx, "SN-1")
	s.Require().NoError(err)

	// The pre-mutation aggregate must not survive in the cache.
	_, cached := s.cache.entries["SN-1"]
	s.False(cached)

	v, err := s.svc.Verify(ctx, "SN-1")
	s.Require().NoError(err)
	s.Equal(reseller, v.Owner)
}

func (s *ServiceSuite) TestVerifyUnknownSerial() {
	_, err := s.svc.Verify(context.Background(), "SN-MISSING")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestInventoryOf() {
	ctx := context.Background()
	a := s.mint("SN-1")
	b := s.mint("SN-2")
	s.Require().NoError(s.svc.ExecuteTransfer(ctx, s.cap, maker, reseller, b.ID, domain.EventDistributionSale))

	inv, err := s.svc.InventoryOf(ctx, maker)
	s.Require().NoError(err)
	s.Require().Len(inv, 1)
	s.Equal(a.ID, inv[0].ID)

	inv, err = s.svc.InventoryOf(ctx, carol)
	s.Require().NoError(err)
	s.Empty(inv)
}

func (s *ServiceSuite) TestHistoryIsAppendOnly() {
	ctx := context.Background()
	asset := s.mint("SN-1")
	s.Require().NoError(s.svc.ExecuteTransfer(ctx, s.cap, maker, reseller, asset.ID, domain.EventDistributionSale))
	s.Require().NoError(s.svc.ExecuteTransfer(ctx, s.cap, reseller, carol, asset.ID, domain.EventRetailSale))

	got, err := s.svc.Get(ctx, asset.ID)
	s.Require().NoError(err)
	s.Require().Len(got.History, 3)
	s.Equal(domain.EventMintListed, got.History[0].Event)
	s.Equal(domain.EventDistributionSale, got.History[1].Event)
	s.Equal(domain.EventRetailSale, got.History[2].Event)

	// Mutating a returned clone must not leak into the store.
	got.History[0].To = dave
	again, err := s.svc.Get(ctx, asset.ID)
	s.Require().NoError(err)
	s.Equal(maker, again.History[0].To)
}
