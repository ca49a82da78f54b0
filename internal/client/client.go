// Package client is the HTTP client used by operator consoles to talk to
// the support-console API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/pkg/logger"
)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the root of the API server (e.g. "http://localhost:3001").
	BaseURL string
	// Token is the bearer token attached to every request. Empty means
	// the server runs with auth disabled.
	Token string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, a no-op logger is used.
	Logger *logger.Logger
}

// Client talks to the support-console API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("client: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     log,
	}, nil
}

// apiError is the uniform error envelope the server writes.
type apiError struct {
	Error string `json:"error"`
}

// Error reports a non-2xx API response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: unexpected status %d", e.StatusCode)
}

// do issues a request and decodes the JSON response into out (when out is
// non-nil). Non-2xx statuses become *Error values.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope apiError
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error == "" {
			envelope.Error = strings.TrimSpace(string(data))
		}
		return &Error{StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// ListConversations fetches the conversation list, newest first, without
// message bodies.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	var list []model.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetConversation fetches one conversation with a window of its messages.
func (c *Client) GetConversation(ctx context.Context, userID string, limit, offset int) (model.ConversationPage, error) {
	path := "/api/conversations/" + url.PathEscape(userID) +
		"?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)

	var page model.ConversationPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return model.ConversationPage{}, err
	}
	return page, nil
}

// CreateConversation starts (or reopens) a conversation with a contact.
func (c *Client) CreateConversation(ctx context.Context, req model.CreateConversationRequest) (model.Conversation, error) {
	var conv model.Conversation
	if err := c.do(ctx, http.MethodPost, "/api/conversations/new", req, &conv); err != nil {
		return model.Conversation{}, err
	}
	return conv, nil
}

// sendResponse mirrors the send endpoint's envelope.
type sendResponse struct {
	Status       string             `json:"status"`
	Conversation model.Conversation `json:"conversation"`
}

// SendMessage delivers an outbound message to a contact.
func (c *Client) SendMessage(ctx context.Context, userID string, req model.SendRequest) (model.Conversation, error) {
	path := "/api/conversations/" + url.PathEscape(userID) + "/send"

	var resp sendResponse
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return model.Conversation{}, err
	}
	return resp.Conversation, nil
}

// MarkRead clears the unread counter for a conversation.
func (c *Client) MarkRead(ctx context.Context, userID string) error {
	path := "/api/conversations/" + url.PathEscape(userID) + "/read"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// SetConversationLabels replaces the labels attached to a conversation.
func (c *Client) SetConversationLabels(ctx context.Context, userID string, labelIDs []string) (model.Conversation, error) {
	path := "/api/conversations/" + url.PathEscape(userID) + "/labels"

	var conv model.Conversation
	req := model.SetLabelsRequest{Labels: labelIDs}
	if err := c.do(ctx, http.MethodPut, path, req, &conv); err != nil {
		return model.Conversation{}, err
	}
	return conv, nil
}

// ListLabels fetches the label catalog.
func (c *Client) ListLabels(ctx context.Context) ([]model.Label, error) {
	var list []model.Label
	if err := c.do(ctx, http.MethodGet, "/api/labels", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateLabel adds a label to the catalog.
func (c *Client) CreateLabel(ctx context.Context, name, color string) (model.Label, error) {
	var label model.Label
	req := map[string]string{"name": name, "color": color}
	if err := c.do(ctx, http.MethodPost, "/api/labels", req, &label); err != nil {
		return model.Label{}, err
	}
	return label, nil
}

// UpdateLabel renames or recolors a label.
func (c *Client) UpdateLabel(ctx context.Context, id, name, color string) (model.Label, error) {
	var label model.Label
	req := map[string]string{"name": name, "color": color}
	if err := c.do(ctx, http.MethodPut, "/api/labels/"+url.PathEscape(id), req, &label); err != nil {
		return model.Label{}, err
	}
	return label, nil
}

// DeleteLabel removes a label and detaches it from every conversation.
func (c *Client) DeleteLabel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/labels/"+url.PathEscape(id), nil, nil)
}

// ListOrders fetches all service orders, newest first.
func (c *Client) ListOrders(ctx context.Context) ([]model.ServiceOrder, error) {
	var list []model.ServiceOrder
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetOrder fetches one service order.
func (c *Client) GetOrder(ctx context.Context, id string) (model.ServiceOrder, error) {
	var order model.ServiceOrder
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, &order); err != nil {
		return model.ServiceOrder{}, err
	}
	return order, nil
}

// CreateOrder registers a new service order.
func (c *Client) CreateOrder(ctx context.Context, order model.ServiceOrder) (model.ServiceOrder, error) {
	var created model.ServiceOrder
	if err := c.do(ctx, http.MethodPost, "/api/orders", order, &created); err != nil {
		return model.ServiceOrder{}, err
	}
	return created, nil
}

// UpdateOrder replaces a service order's editable fields.
func (c *Client) UpdateOrder(ctx context.Context, id string, order model.ServiceOrder) (model.ServiceOrder, error) {
	var updated model.ServiceOrder
	if err := c.do(ctx, http.MethodPut, "/api/orders/"+url.PathEscape(id), order, &updated); err != nil {
		return model.ServiceOrder{}, err
	}
	return updated, nil
}

// DeleteOrder removes a service order.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/orders/"+url.PathEscape(id), nil, nil)
}
