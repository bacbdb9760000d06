package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/lemonauth/internal/server/models"
	"github.com/dmitrijs2005/lemonauth/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type optionRequest struct {
	ID      *int64  `json:"id"`
	Type    string  `json:"type"`
	Name    *string `json:"name"`
	Remarks *string `json:"remarks"`
	Status  *bool   `json:"status"`
}

func (h *Handler) SaveOption(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req optionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	o, err := h.options.CreateOrUpdate(r.Context(), userID, services.OptionInput{
		ID:      req.ID,
		Type:    req.Type,
		Name:    req.Name,
		Remarks: req.Remarks,
		Status:  req.Status,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) ListOptions(w http.ResponseWriter, r *http.Request) {
	items, err := h.options.ListMinimal(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []models.OptionListItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) ListOptionsByType(w http.ResponseWriter, r *http.Request) {
	items, err := h.options.ListByType(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []models.Option{}
	}
	writeJSON(w, http.StatusOK, items)
}
