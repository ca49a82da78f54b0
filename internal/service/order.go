package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/internal/store"
	"github.com/zapdesk/support-console/pkg/logger"
	"github.com/zapdesk/support-console/pkg/metrics"
)

// OrderService manages service orders. The total is always recomputed
// from the submitted fields at save time; a client-sent valorTotal is
// discarded.
type OrderService struct {
	store  *store.OrderStore
	logger *logger.Logger

	mu      sync.RWMutex
	orders  map[string]model.ServiceOrder
	counter int64
}

// NewOrderService creates the service and seeds it from the store.
func NewOrderService(ctx context.Context, st *store.OrderStore, log *logger.Logger) *OrderService {
	s := &OrderService{
		store:  st,
		logger: log,
		orders: make(map[string]model.ServiceOrder),
	}
	for _, o := range st.ListAll(ctx) {
		s.orders[o.ID] = o
	}
	s.counter = int64(len(s.orders))
	return s
}

// List returns all orders, most recently created first.
func (s *OrderService) List(ctx context.Context) []model.ServiceOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ServiceOrder, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].NumeroOS > out[j].NumeroOS
	})
	return out
}

// Get returns one order by id.
func (s *OrderService) Get(ctx context.Context, id string) (model.ServiceOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

func (s *OrderService) validate(order *model.ServiceOrder) error {
	if !trimmed(order.ClienteNome) {
		return validationf("nome do cliente é obrigatório")
	}
	if !trimmed(order.Descricao) {
		return validationf("descrição é obrigatória")
	}
	if order.Status == "" {
		order.Status = model.OrderStatusAberta
	}
	if !model.ValidOrderStatus(order.Status) {
		return validationf("status desconhecido: %q", order.Status)
	}
	if order.Prioridade == "" {
		order.Prioridade = model.PriorityNormal
	}
	if !model.ValidOrderPriority(order.Prioridade) {
		return validationf("prioridade desconhecida: %q", order.Prioridade)
	}
	if order.GarantiaDias < 0 {
		return validationf("garantia não pode ser negativa")
	}
	for i := range order.Itens {
		if order.Itens[i].Quantidade < 1 {
			order.Itens[i].Quantidade = 1
		}
	}
	return nil
}

// Create validates and stores a new order, assigning its id and ticket
// number.
func (s *OrderService) Create(ctx context.Context, order model.ServiceOrder) (model.ServiceOrder, error) {
	if err := s.validate(&order); err != nil {
		return model.ServiceOrder{}, err
	}

	order.ID = uuid.Must(uuid.NewV7()).String()
	if order.GarantiaDias == 0 {
		order.GarantiaDias = model.DefaultWarrantyDays
	}
	order.NumeroOS = s.assignNumber(ctx)
	order.ValorTotal = order.Total()
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt

	s.mu.Lock()
	s.orders[order.ID] = order
	s.mu.Unlock()

	metrics.ServiceOrdersTotal.WithLabelValues(string(order.Status)).Inc()
	s.store.Save(ctx, order)
	return order, nil
}

// Update validates and stores changes to an existing order. Identity and
// numbering are immutable; the total is recomputed.
func (s *OrderService) Update(ctx context.Context, id string, order model.ServiceOrder) (model.ServiceOrder, error) {
	if err := s.validate(&order); err != nil {
		return model.ServiceOrder{}, err
	}

	s.mu.Lock()
	current, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return model.ServiceOrder{}, ErrNotFound
	}

	order.ID = current.ID
	order.NumeroOS = current.NumeroOS
	order.CreatedAt = current.CreatedAt
	order.UpdatedAt = time.Now().UTC()
	order.ValorTotal = order.Total()
	s.orders[id] = order
	s.mu.Unlock()

	s.store.Save(ctx, order)
	return order, nil
}

// Delete removes an order.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.orders[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.orders, id)
	s.mu.Unlock()

	s.store.Delete(ctx, id)
	return nil
}

func (s *OrderService) assignNumber(ctx context.Context) string {
	if number, ok := s.store.NextNumber(ctx); ok {
		return number
	}

	s.mu.Lock()
	s.counter++
	n := s.counter
	s.mu.Unlock()
	return fmt.Sprintf("OS-%d-%04d", time.Now().Year(), n)
}
