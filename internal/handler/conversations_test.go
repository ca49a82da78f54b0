package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/internal/service"
	"github.com/zapdesk/support-console/internal/store"
	"github.com/zapdesk/support-console/pkg/logger"
)

// nopSender accepts every delivery.
type nopSender struct{}

func (nopSender) Send(ctx context.Context, to string, req model.SendRequest) error { return nil }
func (nopSender) SendTemplate(ctx context.Context, to string, tpl model.TemplateRef) error {
	return nil
}

type testEnv struct {
	router        chi.Router
	conversations *service.ConversationService
	labels        *service.LabelService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNop()

	conversations := service.NewConversationService(ctx, store.NewConversationStore(nil, log), nil, log)
	messages := service.NewMessageService(conversations, nopSender{}, log)
	labels := service.NewLabelService(ctx, store.NewLabelStore(nil, log), conversations, log)

	h := NewConversationHandler(conversations, messages, labels, log)
	lh := NewLabelHandler(labels, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/new", h.Create)
			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Post("/send", h.Send)
				r.Post("/read", h.MarkRead)
				r.Put("/labels", h.SetLabels)
			})
		})
		r.Route("/labels", func(r chi.Router) {
			r.Get("/", lh.List)
			r.Post("/", lh.Create)
			r.Put("/{id}", lh.Update)
			r.Delete("/{id}", lh.Delete)
		})
	})

	return &testEnv{router: r, conversations: conversations, labels: labels}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestListConversationsEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCreateAndGetConversation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/conversations/new", model.CreateConversationRequest{
		UserID:         "5511999999999",
		UserName:       "Maria",
		InitialMessage: "olá",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/conversations/5511999999999", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page model.ConversationPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "Maria", page.UserName)
	assert.Len(t, page.Messages, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, 1, page.TotalMessages)
}

func TestCreateConversationValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/conversations/new", model.CreateConversationRequest{
		UserName: "Maria",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "userId")
}

func TestGetConversationNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/conversations/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t)
	env.conversations.Create(context.Background(), "u1", "Maria")

	rec := env.request(t, http.MethodPost, "/api/conversations/u1/send", model.SendRequest{
		Type:    model.MessageTypeText,
		Message: "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendReturnsConversationEnvelope(t *testing.T) {
	env := newTestEnv(t)
	env.conversations.Create(context.Background(), "u1", "Maria")

	rec := env.request(t, http.MethodPost, "/api/conversations/u1/send", model.SendRequest{
		Message: "chegou a peça",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status       string             `json:"status"`
		Conversation model.Conversation `json:"conversation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sent", resp.Status)
	assert.Equal(t, "chegou a peça", resp.Conversation.LastMessage)
}

func TestMarkReadEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.conversations.Create(ctx, "u1", "Maria")

	rec := env.request(t, http.MethodPost, "/api/conversations/u1/read", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/conversations/ghost/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetLabelsRejectsUnknownLabel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.conversations.Create(ctx, "u1", "Maria")

	rec := env.request(t, http.MethodPut, "/api/conversations/u1/labels", model.SetLabelsRequest{
		Labels: []string{"nope"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown label")
}

func TestSetLabelsRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.conversations.Create(ctx, "u1", "Maria")
	label, err := env.labels.Create(ctx, "garantia", "")
	require.NoError(t, err)

	rec := env.request(t, http.MethodPut, "/api/conversations/u1/labels", model.SetLabelsRequest{
		Labels: []string{label.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var conv model.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, []string{label.ID}, conv.Labels)
}

func TestLabelCRUDEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/labels", map[string]string{"name": "urgente"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var label model.Label
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &label))
	assert.Equal(t, model.PresetLabelColors[0], label.Color)

	rec = env.request(t, http.MethodPut, "/api/labels/"+label.ID, map[string]string{
		"name": "urgente mesmo", "color": "#9C27B0",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/labels", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Label
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "urgente mesmo", list[0].Name)

	rec = env.request(t, http.MethodDelete, "/api/labels/"+label.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/labels", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
