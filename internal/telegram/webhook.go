package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// SecretHeader carries the secret token Telegram echoes on webhook calls.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// ErrInvalidSecret is returned when a webhook call carries a wrong secret.
var ErrInvalidSecret = errors.New("telegram: invalid webhook secret token")

// WebhookReceiver processes incoming Telegram webhook payloads.
// It implements gateway.WebhookHandler.
type WebhookReceiver struct {
	handler Handler
	logger  *slog.Logger
	secret  string
}

// NewWebhookReceiver creates a new WebhookReceiver.
func NewWebhookReceiver(handler Handler, logger *slog.Logger, secret string) *WebhookReceiver {
	return &WebhookReceiver{
		handler: handler,
		logger:  logger,
		secret:  secret,
	}
}

// HandleWebhook validates the secret token header, decodes the update and
// hands it to the handler.
func (w *WebhookReceiver) HandleWebhook(ctx context.Context, body []byte, headers http.Header) error {
	if w.secret != "" {
		token := headers.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(w.secret), []byte(token)) != 1 {
			return ErrInvalidSecret
		}
	}

	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("telegram: invalid update JSON: %w", err)
	}

	if update.Kind() == "" {
		w.logger.Debug("skipping webhook update", "update_id", update.UpdateID)
		return nil
	}

	w.handler(ctx, &update)
	return nil
}
