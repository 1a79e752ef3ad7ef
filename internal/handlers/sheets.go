package handlers

import (
	"net/http"
)

// AdminSyncSheets exports orders not yet pushed to the bookkeeping
// spreadsheet.
func (h *Handlers) AdminSyncSheets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.sheetsSyncer == nil {
		h.writeError(ctx, w, http.StatusConflict, "sheets export is not configured")
		return
	}

	result, err := h.sheetsSyncer.SyncOrders(ctx)
	if err != nil {
		h.loggerFromContext(ctx).Error("sheets export failed", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "sheets export failed")
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, result)
}
