package shadow

import "time"

// EventKind names a reconciler outcome.
type EventKind string

// Reconciler outcomes published to the EventSink.
const (
	EventCaptured EventKind = "captured"
	EventUpsell   EventKind = "upsell"
	EventEdited   EventKind = "edited"
	EventDeleted  EventKind = "deleted"
)

// Event describes one reconciler outcome. It carries identifiers only,
// never message content.
type Event struct {
	Kind            EventKind `json:"kind"`
	OwnerID         int64     `json:"owner_id"`
	ConversationKey string    `json:"conversation_key"`
	MessageIDs      []int     `json:"message_ids,omitempty"`
	At              time.Time `json:"at"`
}

// EventSink receives reconciler outcomes. Publish must not block.
type EventSink interface {
	Publish(Event)
}
