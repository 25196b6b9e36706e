package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency whose reachability is part of the health report,
// e.g. the SQLite store or the Redis connection cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string            `json:"status"` // "ok" or "degraded"
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 if every check passes, 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}

		if len(g.checks) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()

			resp.Checks = make(map[string]string, len(g.checks))
			for name, p := range g.checks {
				if err := p.Ping(ctx); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					continue
				}
				resp.Checks[name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
