package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

func (h *Handler) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	asset, err := h.registry.Get(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleVerifySerial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	verification, err := h.registry.Verify(ctx, chi.URLParam(r, "serial"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, verification)
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := domain.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	assets, err := h.registry.InventoryOf(ctx, owner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, assets)
}

type approveRequest struct {
	Delegate string `json:"delegate"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	// An empty delegate clears the approval.
	delegate := domain.Identity(req.Delegate)
	if err := h.registry.Approve(ctx, caller, id, delegate); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

type transferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	from, err := domain.ParseIdentity(req.From)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	to, err := domain.ParseIdentity(req.To)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.registry.Transfer(ctx, caller, from, to, id); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}
