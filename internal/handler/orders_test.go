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

func newOrderEnv() (chi.Router, *service.OrderService) {
	log := logger.NewNop()
	orders := service.NewOrderService(context.Background(), store.NewOrderStore(nil, log), log)
	h := NewOrderHandler(orders, log)

	r := chi.NewRouter()
	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r, orders
}

func doJSON(t *testing.T, r chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestOrderCreateEndpoint(t *testing.T) {
	r, _ := newOrderEnv()

	rec := doJSON(t, r, http.MethodPost, "/api/orders", model.ServiceOrder{
		ClienteNome:  "Maria Silva",
		Descricao:    "troca de tela",
		ValorServico: 100,
		ValorPecas:   50,
		Desconto:     20,
		Itens:        []model.OrderItem{{Descricao: "pelicula", Quantidade: 2, ValorUnitario: 10}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.ServiceOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.NumeroOS)
	assert.Equal(t, 150.0, created.ValorTotal)
}

func TestOrderCreateValidationError(t *testing.T) {
	r, _ := newOrderEnv()

	rec := doJSON(t, r, http.MethodPost, "/api/orders", model.ServiceOrder{Descricao: "sem cliente"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderGetUpdateDelete(t *testing.T) {
	r, orders := newOrderEnv()
	ctx := context.Background()

	created, err := orders.Create(ctx, model.ServiceOrder{ClienteNome: "Maria", Descricao: "reparo"})
	require.NoError(t, err)

	rec := doJSON(t, r, http.MethodGet, "/api/orders/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	changed := created
	changed.Status = model.OrderStatusConcluida
	rec = doJSON(t, r, http.MethodPut, "/api/orders/"+created.ID, changed)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.ServiceOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, model.OrderStatusConcluida, updated.Status)
	assert.Equal(t, created.NumeroOS, updated.NumeroOS)

	req := httptest.NewRequest(http.MethodDelete, "/api/orders/"+created.ID, nil)
	del := httptest.NewRecorder()
	r.ServeHTTP(del, req)
	assert.Equal(t, http.StatusNoContent, del.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/orders/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderInvalidIDRejected(t *testing.T) {
	r, _ := newOrderEnv()

	rec := doJSON(t, r, http.MethodGet, "/api/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
