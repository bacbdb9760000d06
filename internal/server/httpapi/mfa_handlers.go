package httpapi

import "net/http"

type mfaSetupResponse struct {
	Secret string `json:"secret"`
	QR     string `json:"qr"`
}

type mfaCodeRequest struct {
	Token string `json:"token"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type mfaStatusResponse struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) MFASetup(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	setup, err := h.mfa.Setup(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, mfaSetupResponse{Secret: setup.Secret, QR: setup.QR})
}

func (h *Handler) MFAVerify(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req mfaCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Token == "" {
		writeErrorMessage(w, http.StatusBadRequest, "token is required")
		return
	}

	ok, err := h.mfa.Verify(r.Context(), userID, req.Token)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: ok})
}

func (h *Handler) MFADisable(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req mfaCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Token == "" {
		writeErrorMessage(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.mfa.Disable(r.Context(), userID, req.Token); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) MFAStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	enabled, err := h.mfa.Status(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, mfaStatusResponse{Enabled: enabled})
}
