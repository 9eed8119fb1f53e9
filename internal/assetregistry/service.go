// Package assetregistry is the canonical ledger of tracked assets: who owns
// what, at which market state, with the full transfer history. All ownership
// mutations flow through here; the privileged ones (mint, executed sales) are
// gated by an unforgeable capability bound once during wiring.
package assetregistry

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// VerificationCache is a read-through cache for serial-number lookups. The
// in-memory and Redis implementations live in the cache subpackage.
type VerificationCache interface {
	Get(ctx context.Context, serial string) (*Verification, bool)
	Set(ctx context.Context, serial string, v *Verification)
	Invalidate(ctx context.Context, serial string)
}

// Metrics is the subset of platform metrics the registry reports.
type Metrics interface {
	MintedAsset()
}

// RoleReader is the access-control view the registry needs: peer transfers
// require a business role on at least one side unless consumer transfers were
// explicitly enabled.
type RoleReader interface {
	HasAnyBusinessRole(ctx context.Context, identity domain.Identity) (bool, error)
}

const lockShards = 64

// Service implements the asset registry operations over a Store.
type Service struct {
	store  Store
	roles  RoleReader
	binder *binder
	logger *slog.Logger

	clock                  func() time.Time
	cache                  VerificationCache
	metrics                Metrics
	allowConsumerTransfers bool

	// assetLocks serializes concurrent mutations of the same asset without
	// a global lock. Keyed by asset id, sharded by FNV hash.
	assetLocks [lockShards]sync.Mutex
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithClock overrides the time source, used by tests and by deployments that
// need a frozen or offset clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithCache installs a verification cache in front of serial lookups.
func WithCache(cache VerificationCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithMetrics installs mint counters.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithConsumerTransfers lifts the business-role requirement on peer
// transfers, allowing direct consumer-to-consumer movement outside the
// marketplace. Off by default so consumer resales go through a listing and
// the history stays priced.
func WithConsumerTransfers(allow bool) Option {
	return func(s *Service) { s.allowConsumerTransfers = allow }
}

// NewService builds the registry. secretHash is the bcrypt hash of the wiring
// secret that the coordinator will later present to BindCoordinator.
func NewService(store Store, roles RoleReader, secretHash string, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		roles:  roles,
		binder: newBinder(secretHash),
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BindCoordinator performs the one-time capability handshake. The first
// caller presenting the correct wiring secret receives the capability that
// authorizes privileged mutations; every later call fails.
func (s *Service) BindCoordinator(secret string) (Capability, error) {
	c, err := s.binder.bind(secret)
	if err != nil {
		return Capability{}, dErrors.Wrap(err, dErrors.CodeOf(err), "bind coordinator")
	}
	s.logger.Info("registry capability bound")
	return c, nil
}

func (s *Service) lock(id domain.AssetID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id.String()))
	return &s.assetLocks[h.Sum32()%lockShards]
}

// MintParams carries the immutable metadata and initial market state of a new
// asset.
type MintParams struct {
	Owner               domain.Identity
	SerialNumber        string
	ModelDetails        string
	ManufacturerDetails string
	WarrantyTermsRef    string
	Price               domain.Money
	Listed              bool
}

func (p MintParams) validate() error {
	if p.Owner.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "owner cannot be empty")
	}
	if p.SerialNumber == "" {
		return dErrors.New(dErrors.CodeBadRequest, "serial number cannot be empty")
	}
	if p.ModelDetails == "" {
		return dErrors.New(dErrors.CodeBadRequest, "model details cannot be empty")
	}
	return nil
}

// Mint creates a new asset with a fresh sequential id and the genesis history
// record. Capability-gated: only the marketplace coordinator mints.
//
// A serial number that was minted before is not rejected; the serial index
// simply re-points to the newest asset and the collision is logged.
func (s *Service) Mint(ctx context.Context, c Capability, p MintParams) (*Asset, error) {
	if err := s.binder.check(c); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	if prev, err := s.store.FindBySerial(ctx, p.SerialNumber); err == nil {
		s.logger.Warn("serial number reused, index re-pointed",
			slog.String("serial_number", p.SerialNumber),
			slog.String("previous_asset_id", prev.ID.String()))
	}

	id, err := s.store.NextID(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock().UTC()
	asset := &Asset{
		ID:                  id,
		SerialNumber:        p.SerialNumber,
		ModelDetails:        p.ModelDetails,
		ManufacturerDetails: p.ManufacturerDetails,
		WarrantyTermsRef:    p.WarrantyTermsRef,
		CreatedAt:           now,
		Owner:               p.Owner,
		Price:               p.Price,
		Listed:              p.Listed,
		History: []TransferRecord{{
			From:  domain.Nobody,
			To:    p.Owner,
			At:    now,
			Event: domain.EventMintListed,
		}},
	}
	if err := s.store.Create(ctx, asset); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, asset.SerialNumber)
	}
	if s.metrics != nil {
		s.metrics.MintedAsset()
	}
	s.logger.Info("asset minted",
		slog.String("asset_id", asset.ID.String()),
		slog.String("owner", asset.Owner.String()),
		slog.Bool("listed", asset.Listed))
	return asset.Clone(), nil
}

// SetMarketInfo overwrites an asset's price and listed flag. Capability-gated;
// ownership and listing checks happen in the coordinator before it calls in.
func (s *Service) SetMarketInfo(ctx context.Context, c Capability, id domain.AssetID, price domain.Money, listed bool) error {
	if err := s.binder.check(c); err != nil {
		return err
	}
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	asset, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	asset.Price = price
	asset.Listed = listed
	if err := s.store.Update(ctx, asset); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, asset.SerialNumber)
	}
	return nil
}

// RecordTransfer appends a classified history record without moving
// ownership. Capability-gated; the coordinator uses it to annotate provenance
// where the asset never changes hands (the registry cannot classify a sale on
// its own since only the coordinator sees both parties' roles).
func (s *Service) RecordTransfer(ctx context.Context, c Capability, id domain.AssetID, from, to domain.Identity, event domain.TransferEventType) error {
	if err := s.binder.check(c); err != nil {
		return err
	}
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	asset, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	asset.History = append(asset.History, TransferRecord{
		From:  from,
		To:    to,
		At:    s.clock().UTC(),
		Event: event,
	})
	if err := s.store.Update(ctx, asset); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, asset.SerialNumber)
	}
	return nil
}

// ExecuteTransfer moves ownership as part of a coordinated sale: the owner
// changes, the listing and any delegate approval are cleared, and one history
// record is appended. Capability-gated. from must be the current owner so a
// sale settled against a stale owner is rejected rather than silently
// repointed.
func (s *Service) ExecuteTransfer(ctx context.Context, c Capability, from, to domain.Identity, id domain.AssetID, event domain.TransferEventType) error {
	if err := s.binder.check(c); err != nil {
		return err
	}
	if to.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "transfer target cannot be empty")
	}
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()
	return s.applyTransfer(ctx, id, from, to, event)
}

func (s *Service) applyTransfer(ctx context.Context, id domain.AssetID, from, to domain.Identity, event domain.TransferEventType) error {
	asset, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if asset.Owner != from {
		return dErrors.New(dErrors.CodeNotOwner, "from is not the current owner")
	}
	asset.Owner = to
	asset.Approved = domain.Nobody
	asset.Listed = false
	asset.History = append(asset.History, TransferRecord{
		From:  from,
		To:    to,
		At:    s.clock().UTC(),
		Event: event,
	})
	if err := s.store.Update(ctx, asset); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, asset.SerialNumber)
	}
	s.logger.Info("ownership transferred",
		slog.String("asset_id", id.String()),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("event", string(event)))
	return nil
}

// Approve designates a delegate who may move the asset on the owner's behalf.
// Only the current owner may approve; approving Nobody clears the delegate.
func (s *Service) Approve(ctx context.Context, caller domain.Identity, id domain.AssetID, delegate domain.Identity) error {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	asset, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if asset.Owner != caller {
		return dErrors.New(dErrors.CodeNotOwner, "only the owner can approve a delegate")
	}
	asset.Approved = delegate
	return s.store.Update(ctx, asset)
}

// Transfer is the owner-initiated peer path: it moves ownership without a
// sale, recording a PEER_TRANSFER. The caller must be the owner or the
// approved delegate, from must match the current owner, and a listed asset
// must be delisted first. Unless consumer transfers were switched on at
// wiring time, at least one of from/to must hold a business role, which
// forces plain consumers through the marketplace.
func (s *Service) Transfer(ctx context.Context, caller, from, to domain.Identity, id domain.AssetID) error {
	if to.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "transfer target cannot be empty")
	}
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	asset, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if asset.Owner != from {
		return dErrors.New(dErrors.CodeNotOwner, "from is not the current owner")
	}
	if asset.Owner != caller && asset.Approved != caller {
		return dErrors.New(dErrors.CodeNotOwner, "caller is neither owner nor approved delegate")
	}
	if asset.Listed {
		return dErrors.New(dErrors.CodeInvalidState, "delist the asset before a peer transfer")
	}
	if !s.allowConsumerTransfers {
		ok, err := s.anyBusinessRole(ctx, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return dErrors.New(dErrors.CodeRoleRestricted, "peer transfers between consumers must go through the marketplace")
		}
	}
	return s.applyTransfer(ctx, id, from, to, domain.EventPeerTransfer)
}

func (s *Service) anyBusinessRole(ctx context.Context, identities ...domain.Identity) (bool, error) {
	for _, identity := range identities {
		ok, err := s.roles.HasAnyBusinessRole(ctx, identity)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Get returns the full asset record.
func (s *Service) Get(ctx context.Context, id domain.AssetID) (*Asset, error) {
	return s.store.FindByID(ctx, id)
}

// OwnerOf returns the current owner of an asset.
func (s *Service) OwnerOf(ctx context.Context, id domain.AssetID) (domain.Identity, error) {
	asset, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Nobody, err
	}
	return asset.Owner, nil
}

// Verify resolves a serial number to the public verification aggregate,
// read-through the cache when one is installed. When a serial was reused the
// result describes the most recently minted asset.
func (s *Service) Verify(ctx context.Context, serial string) (*Verification, error) {
	if serial == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "serial number cannot be empty")
	}
	if s.cache != nil {
		if v, ok := s.cache.Get(ctx, serial); ok {
			return v, nil
		}
	}
	asset, err := s.store.FindBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	v := verificationOf(asset)
	if s.cache != nil {
		s.cache.Set(ctx, serial, v)
		// A mutation can commit and invalidate between the read above and
		// the Set, which would pin the pre-mutation aggregate until TTL.
		// Re-read and drop the entry when it no longer matches.
		current, err := s.store.FindBySerial(ctx, serial)
		if err != nil || !sameVerification(v, verificationOf(current)) {
			s.cache.Invalidate(ctx, serial)
		}
	}
	return v, nil
}

// sameVerification reports whether two aggregates describe the same asset
// state. History is append-only, so its length stands in for its content.
func sameVerification(a, b *Verification) bool {
	return a.ID == b.ID &&
		a.Owner == b.Owner &&
		a.Listed == b.Listed &&
		a.Price == b.Price &&
		len(a.History) == len(b.History)
}

// InventoryOf lists the assets currently owned by an identity, ordered by id.
func (s *Service) InventoryOf(ctx context.Context, owner domain.Identity) ([]*Asset, error) {
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "owner cannot be empty")
	}
	return s.store.ListByOwner(ctx, owner)
}
