package handlers

import (
	"net/http"
	"strconv"
)

const defaultSyncLogLimit = 200

// AdminListSyncLogs returns the most recent external-system interactions.
func (h *Handlers) AdminListSyncLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultSyncLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			h.writeError(ctx, w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}

	logs, err := h.syncLogStore.List(ctx, limit)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to list sync logs", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to load sync logs")
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, map[string]any{"logs": logs})
}
