package httptransport

import (
	"net/http"
	"strconv"

	"custodia/internal/transport/http/shared"
)

const defaultNotificationLimit = 100

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	events, err := h.notifications.ListRecent(ctx, limit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) handleAssetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := assetIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	events, err := h.notifications.ListByAsset(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, events)
}
