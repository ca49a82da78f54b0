package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/internal/push"
	"github.com/zapdesk/support-console/internal/service"
	"github.com/zapdesk/support-console/pkg/logger"
	"github.com/zapdesk/support-console/pkg/metrics"
)

// StreamHandler streams conversation updates to operator consoles over SSE.
type StreamHandler struct {
	conversations *service.ConversationService
	subscriber    push.Subscriber
	logger        *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(
	conversations *service.ConversationService,
	subscriber push.Subscriber,
	log *logger.Logger,
) *StreamHandler {
	return &StreamHandler{
		conversations: conversations,
		subscriber:    subscriber,
		logger:        log,
	}
}

// heartbeatEvent keeps intermediaries from closing idle connections.
type heartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// initEvent carries the full conversation list sent on connect.
type initEvent struct {
	Conversations []model.Conversation `json:"conversations"`
}

// Events handles GET /api/events
//
// The client receives an "init" event with the current conversation list,
// then a "message" event for every conversation that changes. Subscribing
// happens before the snapshot is taken so no update can fall between them.
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sub, err := h.subscriber.Subscribe()
	if err != nil {
		h.logger.Error("failed to subscribe to conversation updates", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "event feed unavailable")
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	snapshot := h.conversations.Snapshot(ctx)
	if snapshot == nil {
		snapshot = []model.Conversation{}
	}
	sendSSEEvent(w, flusher, "init", &initEvent{Conversations: snapshot})

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected")
			return

		case update, open := <-sub.Updates():
			if !open {
				h.logger.Warn("conversation update feed closed")
				return
			}
			sendSSEEvent(w, flusher, "message", update)

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &heartbeatEvent{
				Timestamp: time.Now(),
			})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
