package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

type roleRequest struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
}

func (h *Handler) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	h.mutateRole(w, r, h.access.GrantRole)
}

func (h *Handler) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	h.mutateRole(w, r, h.access.RevokeRole)
}

func (h *Handler) mutateRole(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, caller, target domain.Identity, role domain.Role) error) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	target, err := domain.ParseIdentity(req.Identity)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := apply(ctx, caller, target, role); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGetRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, err := domain.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	roles, err := h.access.RolesOf(ctx, identity)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"identity": identity,
		"roles":    roles,
	})
}
