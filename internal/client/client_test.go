package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdesk/support-console/internal/model"
)

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestListConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]model.Conversation{{UserID: "u1", UserName: "Maria"}})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Token: "tok"})
	require.NoError(t, err)

	list, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Maria", list[0].UserName)
}

func TestGetConversationQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/u1", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "100", r.URL.Query().Get("offset"))
		json.NewEncoder(w).Encode(model.ConversationPage{
			Conversation: model.Conversation{UserID: "u1"},
			HasMore:      true,
		})
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	page, err := c.GetConversation(context.Background(), "u1", 50, 100)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
}

func TestErrorEnvelopeDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "mensagem vazia"})
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	_, err := c.SendMessage(context.Background(), "u1", model.SendRequest{})
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "mensagem vazia")
}

func TestStreamDecodesEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		fmt.Fprintf(w, "event: init\n")
		fmt.Fprintf(w, "data: {\"conversations\":[{\"userId\":\"u1\",\"userName\":\"Maria\"}]}\n\n")
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"timestamp\":\"2026-01-01T00:00:00Z\"}\n\n")
		fmt.Fprintf(w, "event: message\n")
		fmt.Fprintf(w, "data: {\"userId\":\"u1\",\"conversation\":{\"userId\":\"u1\",\"lastMessage\":\"oi\"}}\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := c.Stream(ctx)
	require.NoError(t, err)

	var received []Event
	for event := range events {
		received = append(received, event)
	}

	// Heartbeats never surface.
	require.Len(t, received, 2)
	assert.Equal(t, EventInit, received[0].Type)
	require.Len(t, received[0].Snapshot, 1)
	assert.Equal(t, "Maria", received[0].Snapshot[0].UserName)

	assert.Equal(t, EventMessage, received[1].Type)
	assert.Equal(t, "oi", received[1].Update.Conversation.LastMessage)
}

func TestStreamNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	_, err := c.Stream(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}
