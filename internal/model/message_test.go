package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreviewText(t *testing.T) {
	msg := Message{Type: MessageTypeText, Content: "Hi"}
	assert.Equal(t, "Hi", msg.Preview())
}

func TestPreviewAudio(t *testing.T) {
	msg := Message{Type: MessageTypeAudio, Content: "https://cdn.example/voice.ogg", Duration: 12}
	assert.Equal(t, "🎤 Áudio", msg.Preview())
}

func TestPreviewFile(t *testing.T) {
	msg := Message{Type: MessageTypeFile, FileName: "invoice.pdf"}
	assert.Equal(t, "📎 invoice.pdf", msg.Preview())
}

func TestPreviewFileWithoutName(t *testing.T) {
	msg := Message{Type: MessageTypeFile}
	assert.Equal(t, "📎 Arquivo", msg.Preview())
}
