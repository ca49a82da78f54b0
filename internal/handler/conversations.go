package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zapdesk/support-console/internal/middleware"
	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/internal/service"
	"github.com/zapdesk/support-console/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	conversations *service.ConversationService
	messages      *service.MessageService
	labels        *service.LabelService
	logger        *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(
	conversations *service.ConversationService,
	messages *service.MessageService,
	labels *service.LabelService,
	log *logger.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		labels:        labels,
		logger:        log,
	}
}

// List handles GET /api/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.conversations.List(r.Context())
	if list == nil {
		list = []model.Conversation{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/conversations/{userId}?limit&offset
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	page, ok := h.conversations.Page(r.Context(), userID, limit, offset)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// Create handles POST /api/conversations/new
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.messages.StartConversation(r.Context(), req)
	if err != nil {
		h.logger.WithCorrelationID(middleware.GetCorrelationID(r.Context())).
			Error("start conversation", zap.String("user_id", req.UserID), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// Send handles POST /api/conversations/{userId}/send
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.messages.Send(r.Context(), userID, req)
	if err != nil {
		h.logger.WithCorrelationID(middleware.GetCorrelationID(r.Context())).
			Error("send message", zap.String("user_id", userID), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "sent",
		"conversation": conv,
	})
}

// MarkRead handles POST /api/conversations/{userId}/read
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.conversations.MarkRead(r.Context(), userID) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetLabels handles PUT /api/conversations/{userId}/labels
func (h *ConversationHandler) SetLabels(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SetLabelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for _, id := range req.Labels {
		if _, ok := h.labels.Get(r.Context(), id); !ok {
			writeError(w, http.StatusBadRequest, "unknown label: "+id)
			return
		}
	}

	conv, ok := h.conversations.SetLabels(r.Context(), userID, req.Labels)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}
