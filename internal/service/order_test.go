package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/internal/store"
	"github.com/zapdesk/support-console/pkg/logger"
)

func newTestOrderService() *OrderService {
	st := store.NewOrderStore(nil, logger.NewNop())
	return NewOrderService(context.Background(), st, logger.NewNop())
}

func validOrder() model.ServiceOrder {
	return model.ServiceOrder{
		ClienteNome: "Maria Silva",
		Descricao:   "troca de tela",
	}
}

func TestOrderCreateRequiredFields(t *testing.T) {
	svc := newTestOrderService()
	ctx := context.Background()

	_, err := svc.Create(ctx, model.ServiceOrder{Descricao: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, model.ServiceOrder{ClienteNome: "Maria", Descricao: "  "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderCreateDefaults(t *testing.T) {
	svc := newTestOrderService()

	order, err := svc.Create(context.Background(), validOrder())
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, model.OrderStatusAberta, order.Status)
	assert.Equal(t, model.PriorityNormal, order.Prioridade)
	assert.Equal(t, model.DefaultWarrantyDays, order.GarantiaDias)
	assert.Equal(t, fmt.Sprintf("OS-%d-0001", time.Now().Year()), order.NumeroOS)
}

func TestOrderCreateRejectsUnknownStatus(t *testing.T) {
	svc := newTestOrderService()

	order := validOrder()
	order.Status = "fechada"
	_, err := svc.Create(context.Background(), order)
	assert.ErrorIs(t, err, ErrValidation)

	order = validOrder()
	order.Prioridade = "imediata"
	_, err = svc.Create(context.Background(), order)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderCreateComputesTotal(t *testing.T) {
	svc := newTestOrderService()

	order := validOrder()
	order.ValorServico = 100
	order.ValorPecas = 50
	order.Desconto = 20
	order.Itens = []model.OrderItem{{Descricao: "pelicula", Quantidade: 2, ValorUnitario: 10}}
	order.ValorTotal = 9999 // never trusted from input

	created, err := svc.Create(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, 150.0, created.ValorTotal)
}

func TestOrderItemQuantityFloor(t *testing.T) {
	svc := newTestOrderService()

	order := validOrder()
	order.Itens = []model.OrderItem{{Descricao: "parafuso", Quantidade: 0, ValorUnitario: 2}}

	created, err := svc.Create(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, 1, created.Itens[0].Quantidade)
}

func TestOrderNumberingIncrements(t *testing.T) {
	svc := newTestOrderService()
	ctx := context.Background()

	first, _ := svc.Create(ctx, validOrder())
	second, _ := svc.Create(ctx, validOrder())
	assert.NotEqual(t, first.NumeroOS, second.NumeroOS)
}

func TestOrderUpdatePreservesIdentity(t *testing.T) {
	svc := newTestOrderService()
	ctx := context.Background()

	created, _ := svc.Create(ctx, validOrder())

	changed := validOrder()
	changed.ID = "forged"
	changed.NumeroOS = "OS-0000-9999"
	changed.Status = model.OrderStatusConcluida
	changed.ValorServico = 200

	updated, err := svc.Update(ctx, created.ID, changed)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.NumeroOS, updated.NumeroOS)
	assert.Equal(t, model.OrderStatusConcluida, updated.Status)
	assert.Equal(t, 200.0, updated.ValorTotal)

	_, err = svc.Update(ctx, "missing", validOrder())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderDelete(t *testing.T) {
	svc := newTestOrderService()
	ctx := context.Background()

	created, _ := svc.Create(ctx, validOrder())
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, ok := svc.Get(ctx, created.ID)
	assert.False(t, ok)

	assert.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}
