package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Version          string           `json:"version,omitempty"`
	UptimeSeconds    int64            `json:"uptime_seconds"`
	Counters         CountersSnapshot `json:"counters"`
	EventSubscribers int              `json:"event_subscribers"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Version:       g.version,
			UptimeSeconds: int64(time.Since(g.startedAt) / time.Second),
			Counters:      g.counters.Snapshot(),
		}
		if g.events != nil {
			resp.EventSubscribers = g.events.Subscribers()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
