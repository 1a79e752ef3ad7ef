package handlers

import (
	"net/http"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AdminLogin exchanges admin credentials for a bearer token.
func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var req loginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := h.authManager.Authenticate(req.Username, req.Password)
	if err != nil {
		logger.Warn("admin login rejected", "username", req.Username, "remote_ip", clientIP(r))
		h.writeError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	logger.Info("admin logged in", "username", req.Username)
	h.writeJSON(ctx, w, http.StatusOK, map[string]string{"token": token})
}
