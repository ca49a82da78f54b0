package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zapdesk/support-console/internal/middleware"
	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/internal/service"
	"github.com/zapdesk/support-console/pkg/logger"
)

// OrderHandler handles service-order endpoints.
type OrderHandler struct {
	orders *service.OrderService
	logger *logger.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders *service.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: log}
}

// List handles GET /api/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.orders.List(r.Context())
	if list == nil {
		list = []model.ServiceOrder{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, ok := h.orders.Get(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Create handles POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var order model.ServiceOrder
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.orders.Create(r.Context(), order)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/orders/{id}
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var order model.ServiceOrder
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.orders.Update(r.Context(), id, order)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/orders/{id}
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
