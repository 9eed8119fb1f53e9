package httptransport

import (
	"encoding/json"
	"net/http"

	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
	"custodia/internal/warranty"
	dErrors "custodia/pkg/domain-errors"
)

func (h *Handler) handleGetWarranty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	record, status, err := h.warranties.Get(ctx, id)
	if err != nil {
		// Assets without a warranty report the None status, not an error.
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		record = nil
		if status, err = h.warranties.GetStatus(ctx, id); err != nil {
			shared.WriteError(w, err)
			return
		}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"warranty":         record,
		"effective_status": status,
	})
}

func (h *Handler) handleWarrantyValid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	valid, err := h.warranties.IsValid(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

type issueWarrantyRequest struct {
	DurationDays int `json:"duration_days"`
	MaxClaims    int `json:"max_claims"`
}

// handleIssueWarranty is the direct manufacturer path; the coordinator path
// carries the capability and never passes through the transport.
func (h *Handler) handleIssueWarranty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req issueWarrantyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.warranties.Issue(ctx, warranty.Capability{}, caller, id, req.DurationDays, req.MaxClaims); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"status": "issued"})
}

type claimRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleRequestService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.warranties.RequestService(ctx, caller, id, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

type resolveClaimRequest struct {
	Log    string `json:"log,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) handleApproveClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req resolveClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.warranties.ApproveClaim(ctx, caller, id, req.Log); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *Handler) handleRejectClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req resolveClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.warranties.RejectClaim(ctx, caller, id, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}
