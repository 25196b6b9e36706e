package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/delixor/shadowbot/internal/core"
)

// Transport feeds updates to a Handler: by long polling, or by registering
// the webhook whose receiver is mounted on the HTTP gateway.
type Transport struct {
	client  *Client
	handler Handler
	logger  *slog.Logger
	config  Config
	poller  *Poller
}

// NewTransport creates a Transport for the mode in config.
func NewTransport(client *Client, handler Handler, logger *slog.Logger, config Config) *Transport {
	return &Transport{
		client:  client,
		handler: handler,
		logger:  logger,
		config:  config,
	}
}

// ModuleInfo implements core.Module.
func (t *Transport) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "telegram.transport"}
}

// Start implements core.Starter.
func (t *Transport) Start() error {
	switch t.config.Mode {
	case ModeWebhook:
		if t.config.WebhookSecret == "" {
			t.logger.Warn("webhook running without secret_token, set webhook_secret for production deployments")
		}
		if err := t.client.SetWebhook(context.Background(), SetWebhookRequest{
			URL:            t.config.WebhookURL,
			SecretToken:    t.config.WebhookSecret,
			AllowedUpdates: t.config.AllowedUpdates,
		}); err != nil {
			return fmt.Errorf("telegram: setWebhook failed: %w", err)
		}
		t.logger.Info("telegram webhook registered", "url", t.config.WebhookURL)

	default:
		// A webhook left behind by an earlier deployment blocks getUpdates.
		if err := t.client.DeleteWebhook(context.Background()); err != nil {
			t.logger.Warn("failed to clear webhook before polling", "error", err)
		}
		t.poller = NewPoller(t.client, t.handler, t.logger, t.config)
		t.poller.Start()
		t.logger.Info("telegram polling started", "timeout", t.config.PollingTimeout)
	}
	return nil
}

// Stop implements core.Stopper.
func (t *Transport) Stop(ctx context.Context) error {
	switch t.config.Mode {
	case ModeWebhook:
		if err := t.client.DeleteWebhook(ctx); err != nil {
			t.logger.Warn("failed to delete webhook on shutdown", "error", err)
		}
	default:
		if t.poller != nil {
			t.poller.Stop()
		}
	}
	return nil
}
