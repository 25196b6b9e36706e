package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	if g.metrics != nil {
		r.Handle("/metrics", g.metrics.Handler())
	}

	// Telegram authenticates with its own secret header.
	if g.webhook != nil {
		r.Post(g.config.WebhookPath, (&webhookEndpoint{
			handler:  g.webhook,
			counters: g.counters,
			logger:   g.logger,
		}).ServeHTTP)
	}

	// Admin endpoints, auth required. Not mounted if no auth configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.logger))
			r.Get("/status", g.handleStatus())
			if g.events != nil {
				r.Get("/api/events", g.events.ServeHTTP)
			}
		})
	}

	return r
}
