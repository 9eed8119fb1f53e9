// Package marketplace orchestrates the multi-step business transactions:
// register-and-list, buy, list and delist. It is the only component holding
// the registry and warranty capabilities, and it is responsible for making
// each operation appear atomic to outside observers.
package marketplace

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/assetregistry"
	"custodia/internal/notify"
	"custodia/internal/warranty"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Registry is the asset-registry surface the coordinator drives.
type Registry interface {
	BindCoordinator(secret string) (assetregistry.Capability, error)
	Mint(ctx context.Context, c assetregistry.Capability, p assetregistry.MintParams) (*assetregistry.Asset, error)
	SetMarketInfo(ctx context.Context, c assetregistry.Capability, id domain.AssetID, price domain.Money, listed bool) error
	ExecuteTransfer(ctx context.Context, c assetregistry.Capability, from, to domain.Identity, id domain.AssetID, event domain.TransferEventType) error
	Get(ctx context.Context, id domain.AssetID) (*assetregistry.Asset, error)
}

// WarrantyLedger is the warranty surface the coordinator drives.
type WarrantyLedger interface {
	BindCoordinator(secret string) (warranty.Capability, error)
	Issue(ctx context.Context, c warranty.Capability, caller domain.Identity, assetID domain.AssetID, durationDays, maxClaims int) error
}

// RoleReader answers the tier checks at purchase time.
type RoleReader interface {
	HasRole(ctx context.Context, identity domain.Identity, role domain.Role) (bool, error)
}

// Metrics is the subset of platform metrics the coordinator reports.
type Metrics interface {
	IncSale(classification string, amount float64)
}

const lockShards = 64

// Coordinator implements the marketplace operations. Construct it, then call
// Bind once with the wiring secrets before serving traffic.
type Coordinator struct {
	registry   Registry
	warranties WarrantyLedger
	roles      RoleReader
	funds      FundsLedger
	logger     *slog.Logger
	tracer     trace.Tracer

	notify  notify.Publisher
	metrics Metrics

	bindMu sync.Mutex
	regCap assetregistry.Capability
	warCap warranty.Capability

	// assetLocks serializes purchases and listing changes per asset so a
	// losing concurrent buyer fails cleanly against the post-sale state.
	assetLocks [lockShards]sync.Mutex
}

// Option configures optional coordinator collaborators.
type Option func(*Coordinator)

// WithPublisher installs the notification publisher.
func WithPublisher(p notify.Publisher) Option {
	return func(c *Coordinator) { c.notify = p }
}

// WithMetrics installs sale counters.
func WithMetrics(m Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func NewCoordinator(registry Registry, warranties WarrantyLedger, roles RoleReader, funds FundsLedger, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry:   registry,
		warranties: warranties,
		roles:      roles,
		funds:      funds,
		logger:     logger,
		tracer:     otel.Tracer("custodia/marketplace"),
		notify:     notify.NopPublisher{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind acquires the registry and warranty capabilities. One-shot, called from
// the bootstrap phase; the capabilities never leave the coordinator.
func (c *Coordinator) Bind(registrySecret, warrantySecret string) error {
	c.bindMu.Lock()
	defer c.bindMu.Unlock()
	if !c.regCap.IsZero() || !c.warCap.IsZero() {
		return dErrors.New(dErrors.CodeConflict, "coordinator already bound")
	}
	regCap, err := c.registry.BindCoordinator(registrySecret)
	if err != nil {
		return err
	}
	warCap, err := c.warranties.BindCoordinator(warrantySecret)
	if err != nil {
		return err
	}
	c.regCap = regCap
	c.warCap = warCap
	c.logger.Info("marketplace coordinator bound")
	return nil
}

func (c *Coordinator) lock(id domain.AssetID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id.String()))
	return &c.assetLocks[h.Sum32()%lockShards]
}

// RegisterParams carries everything needed to mint a listed asset and issue
// its warranty in one operation.
type RegisterParams struct {
	SerialNumber        string
	ModelDetails        string
	ManufacturerDetails string
	WarrantyTermsRef    string
	Price               domain.Money
	DurationDays        int
	MaxClaims           int
}

// RegisterAndList mints a new asset to the calling manufacturer, already
// listed at the given price, and issues its warranty. The warranty inputs are
// validated before the mint so a bad request cannot leave a warranty-less
// asset behind.
func (c *Coordinator) RegisterAndList(ctx context.Context, caller domain.Identity, p RegisterParams) (*assetregistry.Asset, error) {
	ctx, span := c.tracer.Start(ctx, "marketplace.RegisterAndList",
		trace.WithAttributes(attribute.String("caller", caller.String())))
	defer span.End()

	isManufacturer, err := c.roles.HasRole(ctx, caller, domain.RoleManufacturer)
	if err != nil {
		return nil, err
	}
	if !isManufacturer {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "registration requires the manufacturer role")
	}
	if p.DurationDays <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "warranty duration must be positive")
	}
	if p.MaxClaims <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "warranty max claims must be positive")
	}

	asset, err := c.registry.Mint(ctx, c.regCap, assetregistry.MintParams{
		Owner:               caller,
		SerialNumber:        p.SerialNumber,
		ModelDetails:        p.ModelDetails,
		ManufacturerDetails: p.ManufacturerDetails,
		WarrantyTermsRef:    p.WarrantyTermsRef,
		Price:               p.Price,
		Listed:              true,
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("asset_id", asset.ID.String()))

	if err := c.warranties.Issue(ctx, c.warCap, caller, asset.ID, p.DurationDays, p.MaxClaims); err != nil {
		// The mint cannot be taken back; surface the failure so the caller
		// retries issuance via the direct manufacturer path, and leave an
		// audit trail for the warranty-less asset.
		c.logger.Error("warranty issuance failed after mint",
			slog.String("asset_id", asset.ID.String()),
			slog.String("error", err.Error()))
		c.notify.Publish(ctx, notify.Event{
			Type:    notify.EventWarrantyIssueFailed,
			AssetID: asset.ID,
			Actor:   caller,
			Note:    err.Error(),
		})
		return nil, dErrors.Wrap(err, dErrors.CodeOf(err), "issue warranty for minted asset")
	}

	c.notify.Publish(ctx, notify.Event{
		Type:    notify.EventListed,
		AssetID: asset.ID,
		Actor:   caller,
		Amount:  p.Price,
	})
	return asset, nil
}

// Buy purchases a listed asset. Payment is the amount the buyer commits;
// exactly the asking price moves to the seller and the excess never leaves
// the buyer. On any failure after the fund movement the payment is returned,
// so either every effect of the purchase is visible or none is.
func (c *Coordinator) Buy(ctx context.Context, buyer domain.Identity, id domain.AssetID, payment domain.Money) error {
	ctx, span := c.tracer.Start(ctx, "marketplace.Buy",
		trace.WithAttributes(
			attribute.String("asset_id", id.String()),
			attribute.String("buyer", buyer.String())))
	defer span.End()

	mu := c.lock(id)
	mu.Lock()
	defer mu.Unlock()

	asset, err := c.registry.Get(ctx, id)
	if err != nil {
		return err
	}
	if !asset.Listed {
		return dErrors.New(dErrors.CodeNotListed, "asset is not listed for sale")
	}
	seller := asset.Owner
	if seller.IsZero() {
		return dErrors.New(dErrors.CodeInvalidState, "asset has no seller")
	}
	if buyer == seller {
		return dErrors.New(dErrors.CodeSelfPurchase, "buyer already owns the asset")
	}
	if payment < asset.Price {
		return dErrors.New(dErrors.CodeInsufficientFunds, "payment below asking price")
	}

	sellerIsManufacturer, err := c.roles.HasRole(ctx, seller, domain.RoleManufacturer)
	if err != nil {
		return err
	}
	sellerIsRetailer, err := c.roles.HasRole(ctx, seller, domain.RoleRetailer)
	if err != nil {
		return err
	}
	if sellerIsManufacturer {
		buyerIsRetailer, err := c.roles.HasRole(ctx, buyer, domain.RoleRetailer)
		if err != nil {
			return err
		}
		if !buyerIsRetailer {
			return dErrors.New(dErrors.CodeRoleRestricted, "manufacturer stock is sold to retailers only")
		}
	}

	// Move the money first: it is the only step that can fail for business
	// reasons, and it is reversible if the registry mutation fails.
	if err := c.funds.Transfer(ctx, buyer, seller, asset.Price); err != nil {
		return err
	}

	event := domain.ClassifySale(sellerIsManufacturer, sellerIsRetailer)
	if err := c.registry.ExecuteTransfer(ctx, c.regCap, seller, buyer, id, event); err != nil {
		if refundErr := c.funds.Transfer(ctx, seller, buyer, asset.Price); refundErr != nil {
			c.logger.Error("refund after failed transfer did not apply",
				slog.String("asset_id", id.String()),
				slog.String("buyer", buyer.String()),
				slog.String("error", refundErr.Error()))
		}
		return err
	}

	span.SetAttributes(attribute.String("classification", string(event)))
	if c.metrics != nil {
		c.metrics.IncSale(string(event), float64(asset.Price))
	}
	c.notify.Publish(ctx, notify.Event{
		Type:         notify.EventSold,
		AssetID:      id,
		Actor:        buyer,
		Counterparty: seller,
		Amount:       asset.Price,
	})
	c.logger.Info("purchase completed",
		slog.String("asset_id", id.String()),
		slog.String("seller", seller.String()),
		slog.String("buyer", buyer.String()),
		slog.String("classification", string(event)),
		slog.String("price", asset.Price.String()))
	return nil
}

// List puts an owned asset on the market at the given price.
func (c *Coordinator) List(ctx context.Context, caller domain.Identity, id domain.AssetID, price domain.Money) error {
	if price == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "listing price must be positive")
	}
	mu := c.lock(id)
	mu.Lock()
	defer mu.Unlock()

	asset, err := c.registry.Get(ctx, id)
	if err != nil {
		return err
	}
	if asset.Owner != caller {
		return dErrors.New(dErrors.CodeNotOwner, "only the owner can list")
	}
	if err := c.registry.SetMarketInfo(ctx, c.regCap, id, price, true); err != nil {
		return err
	}
	c.notify.Publish(ctx, notify.Event{
		Type:    notify.EventListed,
		AssetID: id,
		Actor:   caller,
		Amount:  price,
	})
	return nil
}

// Delist takes an owned asset off the market, preserving the last price.
func (c *Coordinator) Delist(ctx context.Context, caller domain.Identity, id domain.AssetID) error {
	mu := c.lock(id)
	mu.Lock()
	defer mu.Unlock()

	asset, err := c.registry.Get(ctx, id)
	if err != nil {
		return err
	}
	if asset.Owner != caller {
		return dErrors.New(dErrors.CodeNotOwner, "only the owner can delist")
	}
	return c.registry.SetMarketInfo(ctx, c.regCap, id, asset.Price, false)
}
