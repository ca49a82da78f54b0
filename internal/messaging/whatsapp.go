// Package messaging delivers outbound messages through the WhatsApp
// Cloud API. The provider is opaque to the rest of the system: callers
// depend on the Sender interface only.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/pkg/logger"
	"github.com/zapdesk/support-console/pkg/tracing"
)

// Sender delivers messages to an end user through the external provider.
type Sender interface {
	Send(ctx context.Context, to string, req model.SendRequest) error
	SendTemplate(ctx context.Context, to string, tpl model.TemplateRef) error
}

// DefaultBaseURL is the Cloud API endpoint.
const DefaultBaseURL = "https://graph.facebook.com/v19.0"

// CloudAPIClient is a Sender backed by the Meta WhatsApp Cloud API. With
// no access token configured it degrades to a no-op so the console stays
// usable without a provider account.
type CloudAPIClient struct {
	baseURL    string
	token      string
	phoneID    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewCloudAPIClient creates a Cloud API sender.
func NewCloudAPIClient(token, phoneID string, log *logger.Logger) *CloudAPIClient {
	c := &CloudAPIClient{
		baseURL: DefaultBaseURL,
		token:   token,
		phoneID: phoneID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
	}
	if token == "" || phoneID == "" {
		log.Warn("WhatsApp credentials not configured, outbound delivery disabled")
	}
	return c
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *CloudAPIClient) SetBaseURL(url string) {
	c.baseURL = url
}

// Configured reports whether the client can reach the provider.
func (c *CloudAPIClient) Configured() bool {
	return c.token != "" && c.phoneID != ""
}

type textPayload struct {
	Body string `json:"body"`
}

type mediaPayload struct {
	Link     string `json:"link"`
	Filename string `json:"filename,omitempty"`
}

type templatePayload struct {
	Name     string `json:"name"`
	Language struct {
		Code string `json:"code"`
	} `json:"language"`
}

type outboundMessage struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *textPayload     `json:"text,omitempty"`
	Audio            *mediaPayload    `json:"audio,omitempty"`
	Document         *mediaPayload    `json:"document,omitempty"`
	Template         *templatePayload `json:"template,omitempty"`
}

// Send delivers a normalized send request. The message content of audio
// and file sends is a media link.
func (c *CloudAPIClient) Send(ctx context.Context, to string, req model.SendRequest) error {
	out := outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
	}

	switch req.Type {
	case model.MessageTypeAudio:
		out.Type = "audio"
		out.Audio = &mediaPayload{Link: req.Message}
	case model.MessageTypeFile:
		out.Type = "document"
		out.Document = &mediaPayload{Link: req.Message, Filename: req.FileName}
	default:
		out.Type = "text"
		out.Text = &textPayload{Body: req.Message}
	}

	return c.post(ctx, out)
}

// SendTemplate delivers a pre-approved template message, used to open a
// conversation outside the provider's 24h customer-service window.
func (c *CloudAPIClient) SendTemplate(ctx context.Context, to string, tpl model.TemplateRef) error {
	out := outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template:         &templatePayload{Name: tpl.Name},
	}
	out.Template.Language.Code = tpl.Language

	return c.post(ctx, out)
}

func (c *CloudAPIClient) post(ctx context.Context, out outboundMessage) error {
	if !c.Configured() {
		c.logger.Debug("provider disabled, skipping delivery")
		return nil
	}

	ctx, span := tracing.Tracer("messaging").Start(ctx, "cloudapi.deliver")
	defer span.End()

	body, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}
