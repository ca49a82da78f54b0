package push

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/pkg/logger"
)

// SubjectConversations carries one ConversationUpdate per changed
// conversation.
const SubjectConversations = "console.conversations"

// Publisher emits conversation updates onto the push channel. The service
// layer depends on this interface, never on a shared connection handle.
type Publisher interface {
	PublishUpdate(update model.ConversationUpdate) error
}

// NATSPublisher publishes updates over NATS core pub/sub. Delivery is
// fire-and-forget: the authoritative state lives in the store, the push
// channel only accelerates it.
type NATSPublisher struct {
	client *Client
	logger *logger.Logger
}

// NewNATSPublisher creates a publisher over an established client.
func NewNATSPublisher(client *Client, log *logger.Logger) *NATSPublisher {
	return &NATSPublisher{client: client, logger: log}
}

// PublishUpdate marshals and publishes a conversation update.
func (p *NATSPublisher) PublishUpdate(update model.ConversationUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	if err := p.client.conn.Publish(SubjectConversations, data); err != nil {
		return fmt.Errorf("publish update: %w", err)
	}
	return nil
}

// Subscription is a live feed of conversation updates.
type Subscription struct {
	ch    chan model.ConversationUpdate
	close func()
}

// NewSubscription wraps an update channel with a teardown hook. Exposed
// so in-process feeds (tests, the embedded console) can satisfy the same
// shape as a NATS subscription.
func NewSubscription(ch chan model.ConversationUpdate, close func()) *Subscription {
	return &Subscription{ch: ch, close: close}
}

// Updates returns the update channel.
func (s *Subscription) Updates() <-chan model.ConversationUpdate {
	return s.ch
}

// Close tears down the subscription.
func (s *Subscription) Close() {
	if s.close != nil {
		s.close()
	}
}

// Subscriber is the consuming side of the push channel.
type Subscriber interface {
	Subscribe() (*Subscription, error)
}

// Subscribe starts receiving conversation updates. Slow consumers drop
// updates rather than block the channel; a dropped update is recovered by
// the next full fetch.
func (p *NATSPublisher) Subscribe() (*Subscription, error) {
	ch := make(chan model.ConversationUpdate, 64)

	sub, err := p.client.conn.Subscribe(SubjectConversations, func(msg *nats.Msg) {
		var update model.ConversationUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			p.logger.Error("decode conversation update", zap.Error(err))
			return
		}
		select {
		case ch <- update:
		default:
			p.logger.Warn("push subscriber lagging, dropping update",
				zap.String("user_id", update.UserID))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", SubjectConversations, err)
	}

	return NewSubscription(ch, func() { _ = sub.Unsubscribe() }), nil
}
