package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"custodia/internal/transport/http/shared"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

const tokenLifetime = time.Hour

type tokenRequest struct {
	Identity string `json:"identity"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleIssueToken mints a bearer token for an identity. Identities come from
// an external issuer in production; this endpoint stands in for it during
// development and testing.
func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	identity, err := domain.ParseIdentity(req.Identity)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	token, err := h.tokens.GenerateAccessToken(identity, tokenLifetime)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(tokenLifetime.Seconds()),
	})
}
