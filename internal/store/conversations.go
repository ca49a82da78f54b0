package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/pkg/logger"
	"github.com/zapdesk/support-console/pkg/metrics"
)

// ConversationStore persists conversations, one row per userId. All
// operations fail open: a missing or unreachable database yields empty
// results or echoed inputs, never an error to the caller.
type ConversationStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewConversationStore creates a conversation store. db may be nil, in
// which case the store runs degraded.
func NewConversationStore(db *sql.DB, log *logger.Logger) *ConversationStore {
	return &ConversationStore{db: db, logger: log}
}

// Configured reports whether a backing database is attached.
func (s *ConversationStore) Configured() bool {
	return s.db != nil
}

const conversationColumns = `user_id, user_name, messages, last_message, last_timestamp, unread, labels`

// ListAll returns every conversation ordered by last_timestamp descending.
// Returns an empty list when the store is degraded or the query fails.
func (s *ConversationStore) ListAll(ctx context.Context) []model.Conversation {
	if s.db == nil {
		metrics.RecordStoreOp("list_all", "degraded")
		return nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations ORDER BY last_timestamp DESC NULLS LAST`)
	if err != nil {
		s.logger.Error("list conversations", zap.Error(err))
		metrics.RecordStoreOp("list_all", "error")
		return nil
	}
	defer rows.Close()

	var conversations []model.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			s.logger.Error("scan conversation", zap.Error(err))
			continue
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("list conversations", zap.Error(err))
	}

	metrics.RecordStoreOp("list_all", "ok")
	return conversations
}

// GetByUserID returns the conversation for userId, or ok=false when no
// row matches or the store is degraded. Absence is not an error.
func (s *ConversationStore) GetByUserID(ctx context.Context, userID string) (model.Conversation, bool) {
	if s.db == nil {
		metrics.RecordStoreOp("get", "degraded")
		return model.Conversation{}, false
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE user_id = $1`, userID)
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		metrics.RecordStoreOp("get", "ok")
		return model.Conversation{}, false
	}
	if err != nil {
		s.logger.Error("get conversation", zap.String("user_id", userID), zap.Error(err))
		metrics.RecordStoreOp("get", "error")
		return model.Conversation{}, false
	}

	metrics.RecordStoreOp("get", "ok")
	return conv, true
}

// Upsert inserts or replaces the conversation keyed on userId. On any
// failure the input is returned unchanged so the in-memory view stays
// consistent even when persistence does not.
func (s *ConversationStore) Upsert(ctx context.Context, userID string, conv model.Conversation) model.Conversation {
	if s.db == nil {
		metrics.RecordStoreOp("upsert", "degraded")
		return conv
	}

	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		s.logger.Error("marshal messages", zap.String("user_id", userID), zap.Error(err))
		metrics.RecordStoreOp("upsert", "error")
		return conv
	}

	var lastTimestamp sql.NullTime
	if !conv.LastTimestamp.IsZero() {
		lastTimestamp = sql.NullTime{Time: conv.LastTimestamp, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (user_id, user_name, messages, last_message, last_timestamp, unread, labels, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (user_id) DO UPDATE SET
			user_name      = EXCLUDED.user_name,
			messages       = EXCLUDED.messages,
			last_message   = EXCLUDED.last_message,
			last_timestamp = EXCLUDED.last_timestamp,
			unread         = EXCLUDED.unread,
			labels         = EXCLUDED.labels,
			updated_at     = now()`,
		userID, conv.UserName, messages, conv.LastMessage, lastTimestamp,
		conv.Unread, pq.Array(conv.Labels))
	if err != nil {
		s.logger.Error("upsert conversation", zap.String("user_id", userID), zap.Error(err))
		metrics.RecordStoreOp("upsert", "error")
		return conv
	}

	metrics.RecordStoreOp("upsert", "ok")
	return conv
}

// AppendMessage appends msg to an existing conversation, recomputes the
// preview fields and upserts the result. Returns ok=false when the
// conversation does not exist; this path never creates one.
func (s *ConversationStore) AppendMessage(ctx context.Context, userID string, msg model.Message) (model.Conversation, bool) {
	conv, ok := s.GetByUserID(ctx, userID)
	if !ok {
		return model.Conversation{}, false
	}

	conv.Messages = append(conv.Messages, msg)
	conv.LastMessage = msg.Preview()
	conv.LastTimestamp = msg.Timestamp

	return s.Upsert(ctx, userID, conv), true
}

// MarkRead resets the unread counter. Best-effort: failures are logged
// and swallowed.
func (s *ConversationStore) MarkRead(ctx context.Context, userID string) {
	if s.db == nil {
		metrics.RecordStoreOp("mark_read", "degraded")
		return
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET unread = 0, updated_at = now() WHERE user_id = $1`, userID); err != nil {
		s.logger.Error("mark conversation read", zap.String("user_id", userID), zap.Error(err))
		metrics.RecordStoreOp("mark_read", "error")
		return
	}
	metrics.RecordStoreOp("mark_read", "ok")
}

// RemoveLabel strips a deleted label from every conversation row.
func (s *ConversationStore) RemoveLabel(ctx context.Context, labelID string) {
	if s.db == nil {
		return
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET labels = array_remove(labels, $1) WHERE $1 = ANY(labels)`, labelID); err != nil {
		s.logger.Error("remove label from conversations", zap.String("label_id", labelID), zap.Error(err))
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (model.Conversation, error) {
	var (
		conv          model.Conversation
		rawMessages   []byte
		lastTimestamp sql.NullTime
		labels        pq.StringArray
	)

	err := row.Scan(&conv.UserID, &conv.UserName, &rawMessages, &conv.LastMessage,
		&lastTimestamp, &conv.Unread, &labels)
	if err != nil {
		return model.Conversation{}, err
	}

	if len(rawMessages) > 0 {
		if err := json.Unmarshal(rawMessages, &conv.Messages); err != nil {
			return model.Conversation{}, err
		}
	}
	if lastTimestamp.Valid {
		conv.LastTimestamp = lastTimestamp.Time.UTC()
	} else {
		conv.LastTimestamp = time.Time{}
	}
	conv.Labels = []string(labels)

	return conv, nil
}
