package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/internal/push"
	"github.com/zapdesk/support-console/internal/store"
	"github.com/zapdesk/support-console/pkg/logger"
	"github.com/zapdesk/support-console/pkg/metrics"
)

// ConversationService owns the authoritative in-memory conversation
// state. The store persists it best-effort; when persistence is degraded
// the console keeps working on memory alone.
type ConversationService struct {
	store     *store.ConversationStore
	publisher push.Publisher
	logger    *logger.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	nextSeq uint64
}

// entry pairs a conversation with its insertion sequence. The sequence is
// the tie-break when two conversations share a lastTimestamp: earlier
// insertion sorts first among equals.
type entry struct {
	conv model.Conversation
	seq  uint64
}

// NewConversationService creates the service and seeds it from the store.
func NewConversationService(ctx context.Context, st *store.ConversationStore, pub push.Publisher, log *logger.Logger) *ConversationService {
	s := &ConversationService{
		store:     st,
		publisher: pub,
		logger:    log,
		entries:   make(map[string]*entry),
	}

	for _, conv := range st.ListAll(ctx) {
		s.entries[conv.UserID] = &entry{conv: conv, seq: s.nextSeq}
		s.nextSeq++
	}
	if n := len(s.entries); n > 0 {
		log.Info("conversations loaded from store", zap.Int("count", n))
	}

	return s
}

// List returns conversation summaries (no message bodies) ordered by
// lastTimestamp descending. Equal timestamps keep insertion order.
func (s *ConversationService) List(ctx context.Context) []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedSummariesLocked()
}

func (s *ConversationService) sortedSummariesLocked() []model.Conversation {
	ordered := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].conv.LastTimestamp.Equal(ordered[j].conv.LastTimestamp) {
			return ordered[i].conv.LastTimestamp.After(ordered[j].conv.LastTimestamp)
		}
		return ordered[i].seq < ordered[j].seq
	})

	summaries := make([]model.Conversation, len(ordered))
	for i, e := range ordered {
		summaries[i] = summarize(e.conv)
	}
	return summaries
}

func summarize(conv model.Conversation) model.Conversation {
	conv.Messages = nil
	conv.Labels = append([]string(nil), conv.Labels...)
	return conv
}

// Page returns one page of the conversation detail view. The offset
// counts back from the newest message and the returned page is ordered
// oldest to newest, so successive pages prepend cleanly on the client.
func (s *ConversationService) Page(ctx context.Context, userID string, limit, offset int) (model.ConversationPage, bool) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[userID]
	if !ok {
		return model.ConversationPage{}, false
	}

	total := len(e.conv.Messages)
	end := total - offset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	page := model.ConversationPage{
		Conversation:  e.conv,
		HasMore:       start > 0,
		TotalMessages: total,
	}
	page.Messages = append([]model.Message(nil), e.conv.Messages[start:end]...)
	page.Labels = append([]string(nil), e.conv.Labels...)

	return page, true
}

// Create upserts a conversation keyed by userId. An existing userId is
// never duplicated: the current conversation is returned, with the
// display name refreshed if it changed.
func (s *ConversationService) Create(ctx context.Context, userID, userName string) model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[userID]; ok {
		if userName != "" && e.conv.UserName != userName {
			e.conv.UserName = userName
			s.persistLocked(ctx, e.conv)
		}
		return e.conv
	}

	conv := model.Conversation{
		UserID:        userID,
		UserName:      userName,
		LastTimestamp: time.Now().UTC(),
	}
	s.entries[userID] = &entry{conv: conv, seq: s.nextSeq}
	s.nextSeq++

	metrics.ConversationsTotal.Inc()
	s.persistLocked(ctx, conv)
	s.publish(conv)

	return conv
}

// Append runs the message-append path: the message joins the sequence,
// the preview fields are recomputed from it, inbound messages bump the
// unread counter, and the result is persisted and pushed. Returns
// ok=false when the conversation does not exist; append never creates
// one.
func (s *ConversationService) Append(ctx context.Context, userID string, msg model.Message) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return model.Conversation{}, false
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	e.conv.Messages = append(e.conv.Messages, msg)
	e.conv.LastMessage = msg.Preview()
	e.conv.LastTimestamp = msg.Timestamp
	if msg.Direction == model.DirectionInbound {
		e.conv.Unread++
	}

	metrics.MessagesTotal.WithLabelValues(string(msg.Direction), string(msg.Type)).Inc()

	// The store appends against its own row; if that row is missing
	// (degraded earlier, or created while unpersisted) fall back to a
	// full upsert of the in-memory state.
	if _, persisted := s.store.AppendMessage(ctx, userID, msg); !persisted {
		s.store.Upsert(ctx, userID, e.conv)
	}

	s.publish(e.conv)
	return e.conv, true
}

// MarkRead resets the unread counter, in memory and best-effort in the
// store. Other conversations are untouched.
func (s *ConversationService) MarkRead(ctx context.Context, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return false
	}
	if e.conv.Unread != 0 {
		e.conv.Unread = 0
		s.store.MarkRead(ctx, userID)
	}
	return true
}

// SetLabels replaces the label associations of a conversation.
func (s *ConversationService) SetLabels(ctx context.Context, userID string, labels []string) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return model.Conversation{}, false
	}

	e.conv.Labels = append([]string(nil), labels...)
	s.persistLocked(ctx, e.conv)
	s.publish(e.conv)

	return e.conv, true
}

// RemoveLabelFromAll strips a deleted label from every conversation so no
// orphaned reference survives the delete.
func (s *ConversationService) RemoveLabelFromAll(ctx context.Context, labelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if len(e.conv.Labels) == 0 {
			continue
		}
		// Previously returned summaries still alias the old slice, so
		// the filter goes into a fresh allocation.
		kept := make([]string, 0, len(e.conv.Labels))
		for _, id := range e.conv.Labels {
			if id != labelID {
				kept = append(kept, id)
			}
		}
		e.conv.Labels = kept
	}
	s.store.RemoveLabel(ctx, labelID)
}

// Snapshot returns the current summary list for push-channel init events.
func (s *ConversationService) Snapshot(ctx context.Context) []model.Conversation {
	return s.List(ctx)
}

func (s *ConversationService) persistLocked(ctx context.Context, conv model.Conversation) {
	s.store.Upsert(ctx, conv.UserID, conv)
}

func (s *ConversationService) publish(conv model.Conversation) {
	if s.publisher == nil {
		return
	}
	update := model.ConversationUpdate{UserID: conv.UserID, Conversation: conv}
	if err := s.publisher.PublishUpdate(update); err != nil {
		s.logger.Error("publish conversation update",
			zap.String("user_id", conv.UserID), zap.Error(err))
	}
}

// trimmed reports whether s is non-empty after trimming whitespace.
func trimmed(s string) bool {
	return strings.TrimSpace(s) != ""
}
