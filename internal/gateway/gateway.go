// Package gateway serves the bot's HTTP surface: health and Prometheus
// endpoints, the Telegram webhook and an authenticated live feed of
// reconciler events.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/delixor/shadowbot/internal/core"
	"github.com/delixor/shadowbot/internal/metrics"
)

// Options carries the gateway's collaborators. All of them are optional.
type Options struct {
	// Checks are pinged by GET /health, keyed by the name reported.
	Checks  map[string]Pinger
	Metrics *metrics.Metrics
	Webhook WebhookHandler
	Events  *EventHub
	Version string
}

// Gateway is the HTTP gateway module.
type Gateway struct {
	config    Config
	logger    *slog.Logger
	server    *http.Server
	checks    map[string]Pinger
	metrics   *metrics.Metrics
	webhook   WebhookHandler
	events    *EventHub
	counters  *Counters
	version   string
	startedAt time.Time
}

// New creates a Gateway. cfg must have been through Defaults and Validate.
func New(cfg Config, opts Options, logger *slog.Logger) *Gateway {
	g := &Gateway{
		config:   cfg,
		logger:   logger,
		checks:   opts.Checks,
		metrics:  opts.Metrics,
		webhook:  opts.Webhook,
		events:   opts.Events,
		counters: &Counters{},
		version:  opts.Version,
	}
	if g.events != nil {
		g.counters = g.events.counters
	}
	return g
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "gateway.http"}
}

// Handler returns the gateway's routes. Start serves the same handler.
func (g *Gateway) Handler() http.Handler {
	return g.buildRouter()
}

// Start implements core.Starter. It binds the listener synchronously so
// address errors surface at startup, then serves in the background.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	if g.events != nil {
		g.events.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
