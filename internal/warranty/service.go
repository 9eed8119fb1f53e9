// Package warranty owns per-asset warranty state: the coverage window, the
// claim counter and the claim status. Expiry is never transitioned eagerly;
// it is derived from the clock at read time, so the stored status may lag the
// effective one.
package warranty

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"custodia/internal/notify"
	"custodia/internal/platform/middleware"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Metrics is the subset of platform metrics the ledger reports.
type Metrics interface {
	IncClaim(outcome string)
}

const lockShards = 64

// Service implements the warranty claim state machine.
type Service struct {
	store  Store
	roles  RoleReader
	binder *binder
	logger *slog.Logger

	clock   func() time.Time
	notify  notify.Publisher
	metrics Metrics

	// ownership is late-bound once during wiring: the registry and the
	// ledger are constructed independently and joined in a second phase.
	ownershipMu sync.Mutex
	ownership   OwnershipReader

	assetLocks [lockShards]sync.Mutex
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithClock overrides the time source. The expiry gate is evaluated against
// this clock at call time.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithPublisher installs the notification publisher.
func WithPublisher(p notify.Publisher) Option {
	return func(s *Service) { s.notify = p }
}

// WithMetrics installs claim outcome counters.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService builds the ledger. secretHash is the bcrypt hash of the wiring
// secret the coordinator presents to BindCoordinator.
func NewService(store Store, roles RoleReader, secretHash string, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		roles:  roles,
		binder: newBinder(secretHash),
		logger: logger,
		clock:  time.Now,
		notify: notify.NopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BindRegistry installs the ownership reader. One-shot: rebinding after the
// bootstrap phase is refused.
func (s *Service) BindRegistry(reader OwnershipReader) error {
	s.ownershipMu.Lock()
	defer s.ownershipMu.Unlock()
	if s.ownership != nil {
		return dErrors.New(dErrors.CodeConflict, "ownership reader already bound")
	}
	if reader == nil {
		return dErrors.New(dErrors.CodeBadRequest, "ownership reader cannot be nil")
	}
	s.ownership = reader
	return nil
}

// BindCoordinator performs the one-time capability handshake for privileged
// issuance.
func (s *Service) BindCoordinator(secret string) (Capability, error) {
	c, err := s.binder.bind(secret)
	if err != nil {
		return Capability{}, dErrors.Wrap(err, dErrors.CodeOf(err), "bind coordinator")
	}
	s.logger.Info("warranty capability bound")
	return c, nil
}

func (s *Service) ownerOf(ctx context.Context, id domain.AssetID) (domain.Identity, error) {
	s.ownershipMu.Lock()
	reader := s.ownership
	s.ownershipMu.Unlock()
	if reader == nil {
		return domain.Nobody, dErrors.New(dErrors.CodeInternal, "ownership reader not bound")
	}
	return reader.OwnerOf(ctx, id)
}

func (s *Service) lock(id domain.AssetID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id.String()))
	return &s.assetLocks[h.Sum32()%lockShards]
}

// Issue creates the warranty for an asset: None -> Active. Authorized for the
// marketplace coordinator (via capability) or for a manufacturer directly.
// A second issuance for the same asset fails with AlreadyIssued.
func (s *Service) Issue(ctx context.Context, c Capability, caller domain.Identity, assetID domain.AssetID, durationDays, maxClaims int) error {
	if !s.binder.holds(c) {
		isManufacturer, err := s.roles.HasRole(ctx, caller, domain.RoleManufacturer)
		if err != nil {
			return err
		}
		if !isManufacturer {
			return dErrors.New(dErrors.CodeUnauthorized, "issuance requires the manufacturer role or the coordinator capability")
		}
	}
	if durationDays <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "duration must be positive")
	}
	if maxClaims <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "max claims must be positive")
	}

	// The asset must exist; a missing id surfaces as NotFound here.
	if _, err := s.ownerOf(ctx, assetID); err != nil {
		return err
	}

	w := &Warranty{
		AssetID:            assetID,
		StartDate:          s.clock().UTC(),
		DurationDays:       durationDays,
		MaxClaims:          maxClaims,
		LastRecordedStatus: domain.WarrantyActive,
		ServiceLog:         []LogEntry{},
	}
	if err := s.store.Create(ctx, w); err != nil {
		return err
	}
	s.logger.Info("warranty issued",
		slog.String("asset_id", assetID.String()),
		slog.Int("duration_days", durationDays),
		slog.Int("max_claims", maxClaims))
	return nil
}

// RequestService opens a claim: Active -> Pending. Only the current owner may
// request. The guards are checked in a fixed order so a fulfilled warranty
// reports ClaimLimitReached even long after its window elapsed.
func (s *Service) RequestService(ctx context.Context, caller domain.Identity, assetID domain.AssetID, reason string) error {
	mu := s.lock(assetID)
	mu.Lock()
	defer mu.Unlock()

	w, err := s.store.FindByAsset(ctx, assetID)
	if err != nil {
		return err
	}
	owner, err := s.ownerOf(ctx, assetID)
	if err != nil {
		return err
	}
	if owner != caller {
		return dErrors.New(dErrors.CodeNotOwner, "only the current owner can request service")
	}
	if w.LastRecordedStatus == domain.WarrantyFulfilled || w.ClaimedCount >= w.MaxClaims {
		return dErrors.New(dErrors.CodeClaimLimitReached, "claim limit reached")
	}
	now := s.clock().UTC()
	if !now.Before(w.ExpiresAt()) {
		return dErrors.New(dErrors.CodeWarrantyExpired, "warranty window elapsed")
	}
	if w.LastRecordedStatus != domain.WarrantyActive {
		return dErrors.New(dErrors.CodeInvalidState, "a claim is already pending")
	}

	w.LastRecordedStatus = domain.WarrantyPending
	w.ServiceLog = append(w.ServiceLog, LogEntry{At: now, Kind: LogRequested, Note: reason})
	if err := s.store.Update(ctx, w); err != nil {
		return err
	}
	event := notify.Event{
		Type:    notify.EventServiceRequested,
		AssetID: assetID,
		Actor:   caller,
		Note:    reason,
	}
	if device := middleware.GetDevice(ctx); device != "" {
		event.Metadata = map[string]string{"device": device}
	}
	s.notify.Publish(ctx, event)
	s.logger.Info("service requested",
		slog.String("asset_id", assetID.String()),
		slog.String("owner", caller.String()))
	return nil
}

// ApproveClaim resolves a pending claim: the counter increments and the
// warranty returns to Active, or becomes Fulfilled when the cap is hit.
// Requires the service-center role.
func (s *Service) ApproveClaim(ctx context.Context, caller domain.Identity, assetID domain.AssetID, log string) error {
	if err := s.requireServiceCenter(ctx, caller); err != nil {
		return err
	}
	mu := s.lock(assetID)
	mu.Lock()
	defer mu.Unlock()

	w, err := s.store.FindByAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if w.LastRecordedStatus != domain.WarrantyPending {
		return dErrors.New(dErrors.CodeInvalidState, "no pending claim to approve")
	}

	w.ClaimedCount++
	if w.ClaimedCount >= w.MaxClaims {
		w.LastRecordedStatus = domain.WarrantyFulfilled
	} else {
		w.LastRecordedStatus = domain.WarrantyActive
	}
	w.ServiceLog = append(w.ServiceLog, LogEntry{At: s.clock().UTC(), Kind: LogApproved, Note: log})
	if err := s.store.Update(ctx, w); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncClaim("approved")
	}
	s.notify.Publish(ctx, notify.Event{
		Type:       notify.EventClaimResolved,
		AssetID:    assetID,
		Actor:      caller,
		Note:       log,
		ClaimCount: w.ClaimedCount,
	})
	s.logger.Info("claim approved",
		slog.String("asset_id", assetID.String()),
		slog.Int("claimed_count", w.ClaimedCount),
		slog.String("status", w.LastRecordedStatus.String()))
	return nil
}

// RejectClaim resolves a pending claim without consuming the counter:
// Pending -> Active. Requires the service-center role.
func (s *Service) RejectClaim(ctx context.Context, caller domain.Identity, assetID domain.AssetID, reason string) error {
	if err := s.requireServiceCenter(ctx, caller); err != nil {
		return err
	}
	mu := s.lock(assetID)
	mu.Lock()
	defer mu.Unlock()

	w, err := s.store.FindByAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if w.LastRecordedStatus != domain.WarrantyPending {
		return dErrors.New(dErrors.CodeInvalidState, "no pending claim to reject")
	}

	w.LastRecordedStatus = domain.WarrantyActive
	w.ServiceLog = append(w.ServiceLog, LogEntry{At: s.clock().UTC(), Kind: LogRejected, Note: reason})
	if err := s.store.Update(ctx, w); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncClaim("rejected")
	}
	s.notify.Publish(ctx, notify.Event{
		Type:    notify.EventClaimRejected,
		AssetID: assetID,
		Actor:   caller,
		Note:    reason,
	})
	s.logger.Info("claim rejected", slog.String("asset_id", assetID.String()))
	return nil
}

func (s *Service) requireServiceCenter(ctx context.Context, caller domain.Identity) error {
	ok, err := s.roles.HasRole(ctx, caller, domain.RoleServiceCenter)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "claim resolution requires the service-center role")
	}
	return nil
}

// GetStatus reports the effective status at call time. Assets without a
// warranty report None rather than an error.
func (s *Service) GetStatus(ctx context.Context, assetID domain.AssetID) (domain.WarrantyStatus, error) {
	w, err := s.store.FindByAsset(ctx, assetID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return domain.WarrantyNone, nil
		}
		return domain.WarrantyNone, err
	}
	return w.EffectiveStatus(s.clock().UTC()), nil
}

// IsValid reports whether a claim could be entertained right now.
func (s *Service) IsValid(ctx context.Context, assetID domain.AssetID) (bool, error) {
	w, err := s.store.FindByAsset(ctx, assetID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return w.Valid(s.clock().UTC()), nil
}

// Get returns the stored record together with its effective status.
func (s *Service) Get(ctx context.Context, assetID domain.AssetID) (*Warranty, domain.WarrantyStatus, error) {
	w, err := s.store.FindByAsset(ctx, assetID)
	if err != nil {
		return nil, domain.WarrantyNone, err
	}
	return w, w.EffectiveStatus(s.clock().UTC()), nil
}
