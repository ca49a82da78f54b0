package model

import (
	"time"
)

// Conversation is a per-end-user message thread. The userId is the stable
// external identifier and the upsert key; a userId never maps to more than
// one conversation.
type Conversation struct {
	UserID        string    `json:"userId"`
	UserName      string    `json:"userName"`
	Messages      []Message `json:"messages,omitempty"`
	LastMessage   string    `json:"lastMessage"`
	LastTimestamp time.Time `json:"lastTimestamp"`
	Unread        int       `json:"unread"`
	Labels        []string  `json:"labels,omitempty"`
}

// ConversationPage is the detail view of a conversation: one page of
// messages plus pagination metadata. The page is ordered oldest to newest.
type ConversationPage struct {
	Conversation
	HasMore       bool `json:"hasMore"`
	TotalMessages int  `json:"totalMessages"`
}

// CreateConversationRequest starts a conversation with a new userId.
// Either an initial free-text message or an approved template is sent.
type CreateConversationRequest struct {
	UserID         string       `json:"userId"`
	UserName       string       `json:"userName"`
	InitialMessage string       `json:"initialMessage,omitempty"`
	Template       *TemplateRef `json:"template,omitempty"`
}

// TemplateRef identifies a pre-approved message template at the provider.
type TemplateRef struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// ConversationUpdate is the push-channel payload for a single changed
// conversation.
type ConversationUpdate struct {
	UserID       string       `json:"userId"`
	Conversation Conversation `json:"conversation"`
}

// SetLabelsRequest replaces the label associations of a conversation.
type SetLabelsRequest struct {
	Labels []string `json:"labels"`
}
