package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/internal/service"
	"github.com/zapdesk/support-console/pkg/logger"
)

// WebhookHandler receives messaging-provider callbacks.
type WebhookHandler struct {
	messages    *service.MessageService
	verifyToken string
	logger      *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(messages *service.MessageService, verifyToken string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		messages:    messages,
		verifyToken: verifyToken,
		logger:      log,
	}
}

// The following types mirror the Cloud API callback envelope. Fields the
// console does not consume are omitted.

type webhookPayload struct {
	Entry []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Value webhookValue `json:"value"`
}

type webhookValue struct {
	Contacts []webhookContact  `json:"contacts"`
	Messages []incomingMessage `json:"messages"`
}

type webhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type incomingMessage struct {
	From      string            `json:"from"`
	Type      string            `json:"type"`
	Timestamp string            `json:"timestamp"`
	Text      *incomingText     `json:"text"`
	Audio     *incomingAudio    `json:"audio"`
	Document  *incomingDocument `json:"document"`
}

type incomingText struct {
	Body string `json:"body"`
}

type incomingAudio struct {
	ID string `json:"id"`
}

type incomingDocument struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
}

// Verify handles GET /webhook
//
// The provider probes the endpoint with a challenge before it starts
// delivering events.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		h.logger.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	h.logger.Warn("webhook verification rejected", zap.String("mode", mode))
	w.WriteHeader(http.StatusForbidden)
}

// Receive handles POST /webhook
//
// Always answers 200 once the body has been read; the provider retries on
// anything else and a malformed event is not going to parse better the
// second time.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("failed to decode webhook payload", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value

			names := make(map[string]string, len(value.Contacts))
			for _, contact := range value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}

			for _, incoming := range value.Messages {
				msg, ok := incoming.toModel()
				if !ok {
					h.logger.Warn("skipping unsupported message type",
						zap.String("type", incoming.Type), zap.String("from", incoming.From))
					continue
				}

				userName := names[incoming.From]
				if userName == "" {
					userName = incoming.From
				}

				h.messages.Receive(ctx, incoming.From, userName, msg)
			}
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (m incomingMessage) toModel() (model.Message, bool) {
	msg := model.Message{
		Direction: model.DirectionInbound,
		Timestamp: parseWebhookTimestamp(m.Timestamp),
	}

	switch m.Type {
	case "text":
		msg.Type = model.MessageTypeText
		if m.Text != nil {
			msg.Content = m.Text.Body
		}
	case "audio":
		msg.Type = model.MessageTypeAudio
	case "document":
		msg.Type = model.MessageTypeFile
		if m.Document != nil {
			msg.FileName = m.Document.Filename
			msg.FileType = m.Document.MimeType
		}
	default:
		return model.Message{}, false
	}

	return msg, true
}

func parseWebhookTimestamp(s string) time.Time {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(secs, 0)
}
