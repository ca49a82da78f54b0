package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zapdesk/support-console/internal/middleware"
	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/internal/service"
	"github.com/zapdesk/support-console/pkg/logger"
)

// LabelHandler handles label CRUD endpoints.
type LabelHandler struct {
	labels *service.LabelService
	logger *logger.Logger
}

// NewLabelHandler creates a new label handler.
func NewLabelHandler(labels *service.LabelService, log *logger.Logger) *LabelHandler {
	return &LabelHandler{labels: labels, logger: log}
}

type labelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// List handles GET /api/labels
func (h *LabelHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.labels.List(r.Context())
	if list == nil {
		list = []model.Label{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Create handles POST /api/labels
func (h *LabelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	label, err := h.labels.Create(r.Context(), req.Name, req.Color)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, label)
}

// Update handles PUT /api/labels/{id}
func (h *LabelHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req labelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	label, err := h.labels.Update(r.Context(), id, req.Name, req.Color)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, label)
}

// Delete handles DELETE /api/labels/{id}
func (h *LabelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.labels.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	h.logger.Info("label deleted", zap.String("label_id", id))
	w.WriteHeader(http.StatusNoContent)
}
