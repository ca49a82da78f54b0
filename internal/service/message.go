package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zapdesk/support-console/internal/messaging"
	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/pkg/logger"
	"github.com/zapdesk/support-console/pkg/metrics"
)

// MessageService handles the outbound send path: local validation,
// provider delivery, then the append that closes the loop through the
// push channel. The sent message is never injected optimistically.
type MessageService struct {
	conversations *ConversationService
	sender        messaging.Sender
	logger        *logger.Logger
}

// NewMessageService creates a message service.
func NewMessageService(conversations *ConversationService, sender messaging.Sender, log *logger.Logger) *MessageService {
	return &MessageService{
		conversations: conversations,
		sender:        sender,
		logger:        log,
	}
}

// Send validates and delivers an outbound message to userID's thread.
// Validation failures abort before any provider call is made.
func (s *MessageService) Send(ctx context.Context, userID string, req model.SendRequest) (model.Conversation, error) {
	if req.Type == "" {
		req.Type = model.MessageTypeText
	}
	if !model.ValidMessageType(req.Type) {
		return model.Conversation{}, validationf("tipo de mensagem desconhecido: %q", req.Type)
	}
	if req.Message == "" {
		return model.Conversation{}, validationf("mensagem vazia")
	}
	if req.Type == model.MessageTypeText && !trimmed(req.Message) {
		return model.Conversation{}, validationf("mensagem vazia")
	}

	if _, ok := s.conversations.Page(ctx, userID, 1, 0); !ok {
		return model.Conversation{}, ErrNotFound
	}

	if err := s.sender.Send(ctx, userID, req); err != nil {
		metrics.DeliveriesTotal.WithLabelValues("error").Inc()
		return model.Conversation{}, fmt.Errorf("deliver message: %w", err)
	}
	metrics.DeliveriesTotal.WithLabelValues("ok").Inc()

	msg := model.Message{
		Type:         req.Type,
		Content:      req.Message,
		Direction:    model.DirectionOutbound,
		Timestamp:    time.Now().UTC(),
		Duration:     req.Duration,
		FileName:     req.FileName,
		FileSize:     req.FileSize,
		FileType:     req.FileType,
		FileCategory: req.FileCategory,
	}

	conv, ok := s.conversations.Append(ctx, userID, msg)
	if !ok {
		return model.Conversation{}, ErrNotFound
	}
	return conv, nil
}

// Receive records an inbound message from the provider webhook. Unknown
// senders get a conversation created first (first contact).
func (s *MessageService) Receive(ctx context.Context, userID, userName string, msg model.Message) model.Conversation {
	msg.Direction = model.DirectionInbound
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	if conv, ok := s.conversations.Append(ctx, userID, msg); ok {
		return conv
	}

	s.conversations.Create(ctx, userID, userName)
	conv, _ := s.conversations.Append(ctx, userID, msg)
	return conv
}

// StartConversation opens a thread with a new userId and sends either a
// free-text initial message or a pre-approved template.
func (s *MessageService) StartConversation(ctx context.Context, req model.CreateConversationRequest) (model.Conversation, error) {
	userID := strings.TrimSpace(req.UserID)
	userName := strings.TrimSpace(req.UserName)
	if userID == "" {
		return model.Conversation{}, validationf("userId é obrigatório")
	}
	if userName == "" {
		return model.Conversation{}, validationf("userName é obrigatório")
	}

	conv := s.conversations.Create(ctx, userID, userName)

	switch {
	case req.Template != nil:
		if err := s.sender.SendTemplate(ctx, userID, *req.Template); err != nil {
			metrics.DeliveriesTotal.WithLabelValues("error").Inc()
			return model.Conversation{}, fmt.Errorf("deliver template: %w", err)
		}
		metrics.DeliveriesTotal.WithLabelValues("ok").Inc()
		conv, _ = s.conversations.Append(ctx, userID, model.Message{
			Type:      model.MessageTypeText,
			Content:   "Template: " + req.Template.Name,
			Direction: model.DirectionOutbound,
			Timestamp: time.Now().UTC(),
		})

	case trimmed(req.InitialMessage):
		var err error
		conv, err = s.Send(ctx, userID, model.SendRequest{
			Message: req.InitialMessage,
			Type:    model.MessageTypeText,
		})
		if err != nil {
			return model.Conversation{}, err
		}
	}

	return conv, nil
}
