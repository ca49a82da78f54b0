package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/pkg/logger"
	"github.com/zapdesk/support-console/pkg/metrics"
)

// OrderStore persists service orders. Orders are stored whole as JSON
// alongside extracted columns for listing; the degradation contract is
// the same as the other stores.
type OrderStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewOrderStore creates a service-order store. db may be nil.
func NewOrderStore(db *sql.DB, log *logger.Logger) *OrderStore {
	return &OrderStore{db: db, logger: log}
}

// NextNumber draws the next human-readable ticket number, OS-<year>-<seq>.
// In degraded mode ok=false and the caller assigns from its own counter.
func (s *OrderStore) NextNumber(ctx context.Context) (string, bool) {
	if s.db == nil {
		return "", false
	}

	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT nextval('service_order_seq')`).Scan(&seq); err != nil {
		s.logger.Error("next order number", zap.Error(err))
		return "", false
	}
	return fmt.Sprintf("OS-%d-%04d", time.Now().Year(), seq), true
}

// ListAll returns every order, most recent first.
func (s *OrderStore) ListAll(ctx context.Context) []model.ServiceOrder {
	if s.db == nil {
		metrics.RecordStoreOp("order_list", "degraded")
		return nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM service_orders ORDER BY created_at DESC`)
	if err != nil {
		s.logger.Error("list orders", zap.Error(err))
		metrics.RecordStoreOp("order_list", "error")
		return nil
	}
	defer rows.Close()

	var orders []model.ServiceOrder
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			s.logger.Error("scan order", zap.Error(err))
			continue
		}
		var order model.ServiceOrder
		if err := json.Unmarshal(raw, &order); err != nil {
			s.logger.Error("decode order", zap.Error(err))
			continue
		}
		orders = append(orders, order)
	}

	metrics.RecordStoreOp("order_list", "ok")
	return orders
}

// Get returns the order with the given id, or ok=false.
func (s *OrderStore) Get(ctx context.Context, id string) (model.ServiceOrder, bool) {
	if s.db == nil {
		metrics.RecordStoreOp("order_get", "degraded")
		return model.ServiceOrder{}, false
	}

	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM service_orders WHERE id = $1`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return model.ServiceOrder{}, false
	}
	if err != nil {
		s.logger.Error("get order", zap.String("order_id", id), zap.Error(err))
		metrics.RecordStoreOp("order_get", "error")
		return model.ServiceOrder{}, false
	}

	var order model.ServiceOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		s.logger.Error("decode order", zap.String("order_id", id), zap.Error(err))
		return model.ServiceOrder{}, false
	}
	metrics.RecordStoreOp("order_get", "ok")
	return order, true
}

// Save inserts or updates an order. Fails open, returning the input.
func (s *OrderStore) Save(ctx context.Context, order model.ServiceOrder) model.ServiceOrder {
	if s.db == nil {
		metrics.RecordStoreOp("order_save", "degraded")
		return order
	}

	raw, err := json.Marshal(order)
	if err != nil {
		s.logger.Error("marshal order", zap.String("order_id", order.ID), zap.Error(err))
		metrics.RecordStoreOp("order_save", "error")
		return order
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO service_orders (id, numero_os, status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, data = EXCLUDED.data, updated_at = now()`,
		order.ID, order.NumeroOS, string(order.Status), raw, order.CreatedAt)
	if err != nil {
		s.logger.Error("save order", zap.String("order_id", order.ID), zap.Error(err))
		metrics.RecordStoreOp("order_save", "error")
		return order
	}

	metrics.RecordStoreOp("order_save", "ok")
	return order
}

// Delete removes an order.
func (s *OrderStore) Delete(ctx context.Context, id string) {
	if s.db == nil {
		metrics.RecordStoreOp("order_delete", "degraded")
		return
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM service_orders WHERE id = $1`, id); err != nil {
		s.logger.Error("delete order", zap.String("order_id", id), zap.Error(err))
		metrics.RecordStoreOp("order_delete", "error")
		return
	}
	metrics.RecordStoreOp("order_delete", "ok")
}
