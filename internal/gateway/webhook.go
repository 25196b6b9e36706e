package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/delixor/shadowbot/internal/telegram"
)

// maxWebhookBody bounds the size of one webhook payload.
const maxWebhookBody = 1 << 20

// WebhookHandler processes a webhook payload. telegram.WebhookReceiver
// implements it and checks its own secret header.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, body []byte, headers http.Header) error
}

// webhookEndpoint adapts a WebhookHandler to HTTP.
type webhookEndpoint struct {
	handler  WebhookHandler
	counters *Counters
	logger   *slog.Logger
}

// ServeHTTP implements http.Handler. A wrong secret answers 401 and a
// malformed payload 400; every processed update answers 200 so Telegram
// does not redeliver it.
func (e *webhookEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		e.counters.webhookFailed.Add(1)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := e.handler.HandleWebhook(r.Context(), body, r.Header); err != nil {
		if errors.Is(err, telegram.ErrInvalidSecret) {
			e.counters.webhookRejected.Add(1)
			e.logger.Warn("webhook rejected", "remote_addr", r.RemoteAddr)
			http.Error(w, "invalid secret token", http.StatusUnauthorized)
			return
		}
		e.counters.webhookFailed.Add(1)
		e.logger.Error("webhook handler failed", "error", err)
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}

	e.counters.webhookAccepted.Add(1)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}
