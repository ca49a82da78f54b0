// Package model defines data structures for the support console.
package model

import (
	"time"
)

// MessageType represents the payload kind of a message.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeAudio MessageType = "audio"
	MessageTypeFile  MessageType = "file"
)

// ValidMessageType reports whether t is a known message type.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageTypeText, MessageTypeAudio, MessageTypeFile:
		return true
	}
	return false
}

// Direction indicates who produced a message.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Message is a single entry in a conversation thread. Messages are
// append-only: once stored they are never mutated or deleted.
type Message struct {
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Direction Direction   `json:"direction,omitempty"`
	Timestamp time.Time   `json:"timestamp"`

	// Media metadata, present for audio and file payloads.
	Duration     int    `json:"duration,omitempty"`
	FileName     string `json:"fileName,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty"`
	FileType     string `json:"fileType,omitempty"`
	FileCategory string `json:"fileCategory,omitempty"`
}

const (
	audioPreview       = "🎤 Áudio"
	filePreviewPrefix  = "📎 "
	filePreviewDefault = "Arquivo"
)

// Preview returns the sidebar preview text for the message. Text messages
// show their literal content; audio and file messages show a fixed
// icon+label, with the file name when one is known.
func (m Message) Preview() string {
	switch m.Type {
	case MessageTypeAudio:
		return audioPreview
	case MessageTypeFile:
		name := m.FileName
		if name == "" {
			name = filePreviewDefault
		}
		return filePreviewPrefix + name
	default:
		return m.Content
	}
}

// SendRequest is the normalized payload for an outbound send.
type SendRequest struct {
	Message      string      `json:"message"`
	Type         MessageType `json:"type"`
	Duration     int         `json:"duration,omitempty"`
	FileName     string      `json:"fileName,omitempty"`
	FileSize     int64       `json:"fileSize,omitempty"`
	FileType     string      `json:"fileType,omitempty"`
	FileCategory string      `json:"fileCategory,omitempty"`
}
