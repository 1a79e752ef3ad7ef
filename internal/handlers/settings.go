package handlers

import (
	"net/http"
	"strings"
)

// AdminGetSettings returns all settings with secret values redacted.
func (h *Handlers) AdminGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := h.settingsStore.All(ctx)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to load settings", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, map[string]any{"settings": settings})
}

// AdminUpdateSettings upserts the provided keys. Keys are flat strings, so
// a partial update never clobbers unrelated settings.
func (h *Handlers) AdminUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var updates map[string]string
	if err := h.decodeJSON(w, r, &updates); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if len(updates) == 0 {
		h.writeError(ctx, w, http.StatusBadRequest, "no settings provided")
		return
	}

	for key, value := range updates {
		key = strings.TrimSpace(key)
		if key == "" {
			h.writeError(ctx, w, http.StatusBadRequest, "setting key must not be empty")
			return
		}
		if err := h.settingsStore.Set(ctx, key, value); err != nil {
			logger.Error("failed to update setting", "key", key, "error", err)
			h.writeError(ctx, w, http.StatusInternalServerError, "failed to update settings")
			return
		}
	}

	logger.Info("settings updated", "keys", len(updates))
	h.writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "updated"})
}
