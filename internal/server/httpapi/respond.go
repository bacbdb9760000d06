package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/dmitrijs2005/lemonauth/internal/logging"
)

const maxBodyBytes = 1 << 20

const genericErrorMessage = "request failed"

// clientErrors are the kinds whose messages may be shown to callers.
var clientErrors = []error{
	common.ErrDuplicateIdentity,
	common.ErrorNotFound,
	common.ErrInvalidCredentials,
	common.ErrDisabledAccount,
	common.ErrAlreadyVerified,
	common.ErrTokenExpired,
	common.ErrInvalidOrExpiredToken,
	common.ErrNoPendingCode,
	common.ErrMfaNotSetup,
	common.ErrValidationFailed,
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: msg})
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps err to a status and a message that carries no internal
// detail. Unknown errors are logged and answered generically.
func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, common.ErrRateLimited):
		writeErrorMessage(w, http.StatusTooManyRequests, common.PublicMessage(err, common.ErrRateLimited))
		return
	case errors.Is(err, common.ErrInvalidToken):
		writeErrorMessage(w, http.StatusUnauthorized, common.PublicMessage(err, common.ErrInvalidToken))
		return
	}

	for _, kind := range clientErrors {
		if errors.Is(err, kind) {
			writeErrorMessage(w, http.StatusBadRequest, common.PublicMessage(err, kind))
			return
		}
	}

	logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeErrorMessage(w, http.StatusBadRequest, genericErrorMessage)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return common.WithMessage(common.ErrValidationFailed, "invalid JSON body")
	}
	return nil
}
