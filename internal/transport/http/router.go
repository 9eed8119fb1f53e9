// Package httptransport is the thin HTTP layer: it decodes requests, pulls
// the caller identity the auth middleware stored in the context, delegates to
// the domain services and translates domain errors to status codes. No
// business logic lives here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custodia/internal/assetregistry"
	"custodia/internal/marketplace"
	"custodia/internal/notify"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	"custodia/internal/warranty"
	"custodia/pkg/domain"
)

// AccessControl is the role surface the transport exposes.
type AccessControl interface {
	GrantRole(ctx context.Context, caller, target domain.Identity, role domain.Role) error
	RevokeRole(ctx context.Context, caller, target domain.Identity, role domain.Role) error
	RolesOf(ctx context.Context, identity domain.Identity) ([]domain.Role, error)
}

// AssetRegistry is the registry surface the transport exposes.
type AssetRegistry interface {
	Get(ctx context.Context, id domain.AssetID) (*assetregistry.Asset, error)
	Verify(ctx context.Context, serial string) (*assetregistry.Verification, error)
	InventoryOf(ctx context.Context, owner domain.Identity) ([]*assetregistry.Asset, error)
	Approve(ctx context.Context, caller domain.Identity, id domain.AssetID, delegate domain.Identity) error
	Transfer(ctx context.Context, caller, from, to domain.Identity, id domain.AssetID) error
}

// Marketplace is the coordinator surface the transport exposes.
type Marketplace interface {
	RegisterAndList(ctx context.Context, caller domain.Identity, p marketplace.RegisterParams) (*assetregistry.Asset, error)
	Buy(ctx context.Context, buyer domain.Identity, id domain.AssetID, payment domain.Money) error
	List(ctx context.Context, caller domain.Identity, id domain.AssetID, price domain.Money) error
	Delist(ctx context.Context, caller domain.Identity, id domain.AssetID) error
}

// WarrantyLedger is the warranty surface the transport exposes. Issue goes
// through the direct manufacturer path; the capability path belongs to the
// coordinator alone.
type WarrantyLedger interface {
	Issue(ctx context.Context, c warranty.Capability, caller domain.Identity, assetID domain.AssetID, durationDays, maxClaims int) error
	RequestService(ctx context.Context, caller domain.Identity, assetID domain.AssetID, reason string) error
	GetStatus(ctx context.Context, assetID domain.AssetID) (domain.WarrantyStatus, error)
	ApproveClaim(ctx context.Context, caller domain.Identity, assetID domain.AssetID, log string) error
	RejectClaim(ctx context.Context, caller domain.Identity, assetID domain.AssetID, reason string) error
	Get(ctx context.Context, assetID domain.AssetID) (*warranty.Warranty, domain.WarrantyStatus, error)
	IsValid(ctx context.Context, assetID domain.AssetID) (bool, error)
}

// TokenIssuer mints access tokens for the development token endpoint.
type TokenIssuer interface {
	GenerateAccessToken(identity domain.Identity, expiresIn time.Duration) (string, error)
}

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	logger        *slog.Logger
	access        AccessControl
	registry      AssetRegistry
	market        Marketplace
	warranties    WarrantyLedger
	notifications notify.Store
	tokens        TokenIssuer
}

func NewHandler(
	access AccessControl,
	registry AssetRegistry,
	market Marketplace,
	warranties WarrantyLedger,
	notifications notify.Store,
	tokens TokenIssuer,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		logger:        logger,
		access:        access,
		registry:      registry,
		market:        market,
		warranties:    warranties,
		notifications: notifications,
		tokens:        tokens,
	}
}

// NewRouter wires all endpoints with the shared middleware chain. Everything
// except the health check, metrics and the token endpoint requires a bearer
// token.
func NewRouter(h *Handler, validator middleware.TokenValidator, m *metrics.Metrics, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(m))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/auth/token", h.handleIssueToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, h.logger))

		r.Post("/roles/grant", h.handleGrantRole)
		r.Post("/roles/revoke", h.handleRevokeRole)
		r.Get("/roles/{identity}", h.handleGetRoles)

		r.Post("/market/register", h.handleRegisterAndList)
		r.Post("/market/{assetID}/buy", h.handleBuy)
		r.Post("/market/{assetID}/list", h.handleList)
		r.Post("/market/{assetID}/delist", h.handleDelist)

		r.Get("/assets/{assetID}", h.handleGetAsset)
		r.Get("/assets/serial/{serial}", h.handleVerifySerial)
		r.Post("/assets/{assetID}/approve", h.handleApprove)
		r.Post("/assets/{assetID}/transfer", h.handleTransfer)
		r.Get("/inventory/{identity}", h.handleInventory)

		r.Get("/warranty/{assetID}", h.handleGetWarranty)
		r.Get("/warranty/{assetID}/valid", h.handleWarrantyValid)
		r.Post("/warranty/{assetID}/issue", h.handleIssueWarranty)
		r.Post("/warranty/{assetID}/claims", h.handleRequestService)
		r.Post("/warranty/{assetID}/claims/approve", h.handleApproveClaim)
		r.Post("/warranty/{assetID}/claims/reject", h.handleRejectClaim)

		r.Get("/notifications", h.handleListNotifications)
		r.Get("/notifications/asset/{assetID}", h.handleAssetNotifications)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
