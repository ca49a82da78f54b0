package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/pkg/logger"
)

// EventType discriminates events on the live feed.
type EventType string

const (
	// EventInit carries the full conversation list sent on connect.
	EventInit EventType = "init"
	// EventMessage carries one changed conversation.
	EventMessage EventType = "message"
)

// Event is one decoded server-sent event. Heartbeats are consumed
// internally and never surface here.
type Event struct {
	Type     EventType
	Snapshot []model.Conversation     // EventInit
	Update   model.ConversationUpdate // EventMessage
}

type initPayload struct {
	Conversations []model.Conversation `json:"conversations"`
}

// Stream connects to the live event feed and delivers decoded events on
// the returned channel. The channel closes when the context is canceled
// or the server ends the stream; callers reconnect by calling Stream
// again.
func (c *Client) Stream(ctx context.Context) (<-chan Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: connect event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &Error{StatusCode: resp.StatusCode, Message: "event stream unavailable"}
	}

	events := make(chan Event)

	go func() {
		defer close(events)
		defer resp.Body.Close()

		var eventName string
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()

			switch {
			case strings.HasPrefix(line, "event: "):
				eventName = strings.TrimPrefix(line, "event: ")

			case strings.HasPrefix(line, "data: "):
				data := strings.TrimPrefix(line, "data: ")
				event, ok := decodeEvent(eventName, []byte(data), c.logger)
				if !ok {
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}

			case line == "":
				eventName = ""
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			c.logger.Warn("event stream closed", zap.Error(err))
		}
	}()

	return events, nil
}

func decodeEvent(name string, data []byte, log *logger.Logger) (Event, bool) {
	switch name {
	case "init":
		var payload initPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Warn("decode init event", zap.Error(err))
			return Event{}, false
		}
		return Event{Type: EventInit, Snapshot: payload.Conversations}, true

	case "message":
		var update model.ConversationUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			log.Warn("decode message event", zap.Error(err))
			return Event{}, false
		}
		return Event{Type: EventMessage, Update: update}, true

	default:
		// Heartbeats and unknown event types are dropped.
		return Event{}, false
	}
}
