package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/delixor/shadowbot/internal/shadow"
)

var _ shadow.EventSink = (*EventHub)(nil)

const eventWriteTimeout = 5 * time.Second

// EventHub fans reconciler events out to WebSocket subscribers. Publish
// never blocks: a subscriber whose queue is full misses events.
type EventHub struct {
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
	buffer   int
	counters *Counters
	logger   *slog.Logger
}

type subscriber struct {
	ownerID int64 // 0 receives every owner's events
	events  chan shadow.Event
}

// NewEventHub creates a hub that queues up to buffer events per subscriber.
func NewEventHub(buffer int, counters *Counters, logger *slog.Logger) *EventHub {
	if buffer <= 0 {
		buffer = 64
	}
	if counters == nil {
		counters = &Counters{}
	}
	return &EventHub{
		subs:     make(map[*subscriber]struct{}),
		buffer:   buffer,
		counters: counters,
		logger:   logger,
	}
}

// Publish implements shadow.EventSink.
func (h *EventHub) Publish(ev shadow.Event) {
	h.counters.eventsPublished.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if s.ownerID != 0 && s.ownerID != ev.OwnerID {
			continue
		}
		select {
		case s.events <- ev:
		default:
			h.counters.eventsDropped.Add(1)
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *EventHub) subscribe(ownerID int64) *subscriber {
	s := &subscriber{ownerID: ownerID, events: make(chan shadow.Event, h.buffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *EventHub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request to a WebSocket and streams events as JSON
// text frames until the client goes away. The optional owner query
// parameter restricts the stream to one owner.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var ownerID int64
	if v := r.URL.Query().Get("owner"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid owner", http.StatusBadRequest)
			return
		}
		ownerID = id
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	s := h.subscribe(ownerID)
	defer h.unsubscribe(s)
	h.logger.Info("event subscriber connected", "remote_addr", r.RemoteAddr, "owner_id", ownerID)

	// Subscribers only listen; CloseRead handles control frames and cancels
	// ctx once the peer closes.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("event subscriber disconnected", "remote_addr", r.RemoteAddr)
			return
		case ev, ok := <-s.events:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				h.logger.Debug("event write failed", "error", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev shadow.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// Close disconnects every subscriber.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		close(s.events)
		delete(h.subs, s)
	}
}
