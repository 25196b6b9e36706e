package gateway

import "sync/atomic"

// Counters tracks gateway-level request counters using atomic operations for
// lock-free concurrency. They are reported by GET /status.
type Counters struct {
	webhookAccepted atomic.Int64
	webhookRejected atomic.Int64
	webhookFailed   atomic.Int64
	eventsPublished atomic.Int64
	eventsDropped   atomic.Int64
}

// Snapshot returns a point-in-time view of the counters.
func (c *Counters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		WebhookAccepted: c.webhookAccepted.Load(),
		WebhookRejected: c.webhookRejected.Load(),
		WebhookFailed:   c.webhookFailed.Load(),
		EventsPublished: c.eventsPublished.Load(),
		EventsDropped:   c.eventsDropped.Load(),
	}
}

// CountersSnapshot is a serializable point-in-time counters view.
type CountersSnapshot struct {
	WebhookAccepted int64 `json:"webhook_accepted"`
	WebhookRejected int64 `json:"webhook_rejected"`
	WebhookFailed   int64 `json:"webhook_failed"`
	EventsPublished int64 `json:"events_published"`
	EventsDropped   int64 `json:"events_dropped"`
}
