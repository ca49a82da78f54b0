package store

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/pkg/logger"
	"github.com/zapdesk/support-console/pkg/metrics"
)

// LabelStore persists labels. Same degradation contract as
// ConversationStore: no database means no-ops with safe defaults.
type LabelStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewLabelStore creates a label store. db may be nil.
func NewLabelStore(db *sql.DB, log *logger.Logger) *LabelStore {
	return &LabelStore{db: db, logger: log}
}

// ListAll returns every label, oldest first.
func (s *LabelStore) ListAll(ctx context.Context) []model.Label {
	if s.db == nil {
		metrics.RecordStoreOp("label_list", "degraded")
		return nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color FROM labels ORDER BY created_at`)
	if err != nil {
		s.logger.Error("list labels", zap.Error(err))
		metrics.RecordStoreOp("label_list", "error")
		return nil
	}
	defer rows.Close()

	var labels []model.Label
	for rows.Next() {
		var l model.Label
		if err := rows.Scan(&l.ID, &l.Name, &l.Color); err != nil {
			s.logger.Error("scan label", zap.Error(err))
			continue
		}
		labels = append(labels, l)
	}

	metrics.RecordStoreOp("label_list", "ok")
	return labels
}

// Save inserts or updates a label. Fails open, returning the input.
func (s *LabelStore) Save(ctx context.Context, label model.Label) model.Label {
	if s.db == nil {
		metrics.RecordStoreOp("label_save", "degraded")
		return label
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (id, name, color) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, color = EXCLUDED.color`,
		label.ID, label.Name, label.Color)
	if err != nil {
		s.logger.Error("save label", zap.String("label_id", label.ID), zap.Error(err))
		metrics.RecordStoreOp("label_save", "error")
		return label
	}

	metrics.RecordStoreOp("label_save", "ok")
	return label
}

// Delete removes a label row. The caller is responsible for cascading the
// association off conversations (see ConversationStore.RemoveLabel).
func (s *LabelStore) Delete(ctx context.Context, labelID string) {
	if s.db == nil {
		metrics.RecordStoreOp("label_delete", "degraded")
		return
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM labels WHERE id = $1`, labelID); err != nil {
		s.logger.Error("delete label", zap.String("label_id", labelID), zap.Error(err))
		metrics.RecordStoreOp("label_delete", "error")
		return
	}
	metrics.RecordStoreOp("label_delete", "ok")
}
