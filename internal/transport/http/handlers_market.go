package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/marketplace"
	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

func assetIDParam(r *http.Request) (domain.AssetID, error) {
	return domain.ParseAssetID(chi.URLParam(r, "assetID"))
}

type registerRequest struct {
	SerialNumber        string       `json:"serial_number"`
	ModelDetails        string       `json:"model_details"`
	ManufacturerDetails string       `json:"manufacturer_details"`
	WarrantyTermsRef    string       `json:"warranty_terms_ref"`
	Price               domain.Money `json:"price"`
	DurationDays        int          `json:"duration_days"`
	MaxClaims           int          `json:"max_claims"`
}

func (h *Handler) handleRegisterAndList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	asset, err := h.market.RegisterAndList(ctx, caller, marketplace.RegisterParams{
		SerialNumber:        req.SerialNumber,
		ModelDetails:        req.ModelDetails,
		ManufacturerDetails: req.ManufacturerDetails,
		WarrantyTermsRef:    req.WarrantyTermsRef,
		Price:               req.Price,
		DurationDays:        req.DurationDays,
		MaxClaims:           req.MaxClaims,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, asset)
}

type buyRequest struct {
	Payment domain.Money `json:"payment"`
}

func (h *Handler) handleBuy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	buyer := middleware.GetIdentity(ctx)

	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.market.Buy(ctx, buyer, id, req.Payment); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "purchased"})
}

type listRequest struct {
	Price domain.Money `json:"price"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.market.List(ctx, caller, id, req.Price); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "listed"})
}

func (h *Handler) handleDelist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.market.Delist(ctx, caller, id); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "delisted"})
}
