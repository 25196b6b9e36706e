package shadow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/delixor/shadowbot/internal/metrics"
	"github.com/delixor/shadowbot/internal/store"
	"github.com/delixor/shadowbot/internal/telegram"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// OwnerResolver maps a business connection id to the id of the owner whose
// account is connected.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, connectionID string) (int64, error)
}

// Gate answers whether an owner is entitled to shadowing.
type Gate interface {
	IsActive(ctx context.Context, ownerID int64) (bool, error)
}

// Notifier delivers messages to the owner. Every call is best-effort: the
// reconciler logs failures and carries on.
type Notifier interface {
	NotifyText(ctx context.Context, ownerID int64, html string) error
	NotifyUpsell(ctx context.Context, ownerID int64) error
	SendMedia(ctx context.Context, ownerID int64, kind store.ContentKind, fileID, caption string) error
}

// Options configures a Reconciler. Owners, Gate, Store, Notifier and Logger
// are required.
type Options struct {
	Owners   OwnerResolver
	Gate     Gate
	Store    store.MessageStore
	Notifier Notifier
	Logger   *slog.Logger

	Sink    EventSink
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
	Now     func() time.Time

	// OnDeleted runs after a delete batch has been committed, so the owner's
	// aggregate views can be refreshed.
	OnDeleted func(ctx context.Context, ownerID int64)
}

// Reconciler turns business message events into shadow store writes and
// owner notifications.
type Reconciler struct {
	owners    OwnerResolver
	gate      Gate
	store     store.MessageStore
	notifier  Notifier
	logger    *slog.Logger
	sink      EventSink
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
	onDeleted func(ctx context.Context, ownerID int64)
}

// NewReconciler creates a Reconciler.
func NewReconciler(opts Options) *Reconciler {
	r := &Reconciler{
		owners:    opts.Owners,
		gate:      opts.Gate,
		store:     opts.Store,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		sink:      opts.Sink,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		now:       opts.Now,
		onDeleted: opts.OnDeleted,
	}
	if r.tracer == nil {
		r.tracer = noop.NewTracerProvider().Tracer("")
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// OnNewMessage shadows a new business message. Messages of owners without
// an active subscription are not stored; the owner gets an upsell prompt
// instead.
func (r *Reconciler) OnNewMessage(ctx context.Context, msg *telegram.Message) (err error) {
	ctx, span := r.tracer.Start(ctx, "shadow.new_message")
	defer func() { endSpan(span, err) }()

	owner, err := r.resolveOwner(ctx, msg.BusinessConnectionID)
	if err != nil {
		return err
	}
	key := ConversationKey(owner, senderID(msg), msg.Chat.ID)
	span.SetAttributes(attribute.String("conversation_key", key), attribute.Int("message_id", msg.MessageID))

	active, err := r.gate.IsActive(ctx, owner)
	if err != nil {
		return fmt.Errorf("shadow: checking subscription of %d: %w", owner, err)
	}
	if !active {
		r.notify(ctx, "upsell", owner, func(ctx context.Context) error {
			return r.notifier.NotifyUpsell(ctx, owner)
		})
		r.metrics.ShadowEvent(metrics.EventUpsell)
		r.publish(Event{Kind: EventUpsell, OwnerID: owner, ConversationKey: key})
		return nil
	}

	payload := PayloadFromMessage(msg)
	if !payload.Storable() {
		r.metrics.ShadowEvent(metrics.EventSkipped)
		return nil
	}

	row := &store.ShadowMessage{
		ConversationKey: key,
		MessageID:       msg.MessageID,
		Content:         payload.Content(),
		Kind:            payload.Kind,
		FileID:          payload.FileID,
		Caption:         payload.Caption,
	}
	if msg.From != nil {
		row.SenderID = msg.From.ID
		row.SenderUsername = msg.From.Username
		row.SenderName = msg.From.FullName()
	} else {
		row.SenderID = msg.Chat.ID
	}

	inserted, err := r.store.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("shadow: appending message %d to %s: %w", msg.MessageID, key, err)
	}
	if !inserted {
		r.logger.Debug("message already shadowed", "key", key, "message_id", msg.MessageID)
		r.metrics.ShadowEvent(metrics.EventDuplicate)
		return nil
	}

	r.metrics.ShadowEvent(metrics.EventCaptured)
	r.publish(Event{Kind: EventCaptured, OwnerID: owner, ConversationKey: key, MessageIDs: []int{msg.MessageID}})
	return nil
}

// OnEditedMessage records an edit of a shadowed message and tells the owner
// what changed. Edits of unknown messages and edits without text are
// ignored.
func (r *Reconciler) OnEditedMessage(ctx context.Context, msg *telegram.Message) (err error) {
	ctx, span := r.tracer.Start(ctx, "shadow.edited_message")
	defer func() { endSpan(span, err) }()

	owner, err := r.resolveOwner(ctx, msg.BusinessConnectionID)
	if err != nil {
		return err
	}
	key := ConversationKey(owner, senderID(msg), msg.Chat.ID)
	span.SetAttributes(attribute.String("conversation_key", key), attribute.Int("message_id", msg.MessageID))

	if msg.Text == "" {
		return nil
	}

	row, err := r.store.FindByKeyAndMessageID(ctx, key, msg.MessageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("shadow: looking up edited message %d in %s: %w", msg.MessageID, key, err)
	}

	before := row.Content
	if err := r.store.ApplyEdit(ctx, row, msg.Text, r.now()); err != nil {
		return fmt.Errorf("shadow: applying edit of %d in %s: %w", msg.MessageID, key, err)
	}

	handle := msg.From.Handle()
	if handle == "" {
		handle = row.Handle()
	}
	r.notify(ctx, "edit", owner, func(ctx context.Context) error {
		return r.notifier.NotifyText(ctx, owner, EditNotice(handle, before, msg.Text))
	})

	r.metrics.ShadowEvent(metrics.EventEdited)
	r.publish(Event{Kind: EventEdited, OwnerID: owner, ConversationKey: key, MessageIDs: []int{msg.MessageID}})
	return nil
}

// OnDeletedMessages marks the shadowed copies of deleted messages, tells the
// owner what was deleted and re-sends deleted media. When no copy is found
// under the chat's conversation key, every conversation of the owner is
// searched for the message ids; message ids are only unique per chat, so
// this fallback can match a message of another conversation.
func (r *Reconciler) OnDeletedMessages(ctx context.Context, ev *telegram.BusinessMessagesDeleted) (err error) {
	ctx, span := r.tracer.Start(ctx, "shadow.deleted_messages")
	defer func() { endSpan(span, err) }()

	owner, err := r.resolveOwner(ctx, ev.BusinessConnectionID)
	if err != nil {
		return err
	}
	key := KeyFor(owner, ev.Chat.ID)
	span.SetAttributes(attribute.String("conversation_key", key), attribute.Int("deleted", len(ev.MessageIDs)))

	rows, err := r.store.FindByKeyAndMessageIDs(ctx, key, ev.MessageIDs)
	if err != nil {
		return fmt.Errorf("shadow: looking up deleted messages in %s: %w", key, err)
	}
	if len(rows) == 0 {
		rows, err = r.store.FindByOwnerAndMessageIDs(ctx, owner, ev.MessageIDs)
		if err != nil {
			return fmt.Errorf("shadow: scanning deleted messages of %d: %w", owner, err)
		}
		if len(rows) > 0 {
			r.logger.Debug("deleted messages matched outside chat key", "key", key, "matched", len(rows))
		}
	}

	var changed []*store.ShadowMessage
	for _, row := range rows {
		if row.Deleted {
			continue
		}
		original := row.Content
		store.MarkDeleted(row)
		changed = append(changed, row)

		handle := row.Handle()
		r.notify(ctx, "delete", owner, func(ctx context.Context) error {
			return r.notifier.NotifyText(ctx, owner, DeleteNotice(handle, original))
		})
		if row.HasMedia() {
			r.notify(ctx, "media", owner, func(ctx context.Context) error {
				return r.notifier.SendMedia(ctx, owner, row.Kind, row.FileID, RecoveredCaption(handle, row.Caption))
			})
			r.metrics.ShadowEvent(metrics.EventRecovered)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	if err := r.store.ApplyDeletes(ctx, changed); err != nil {
		return fmt.Errorf("shadow: committing %d deletions of %d: %w", len(changed), owner, err)
	}

	ids := make([]int, 0, len(changed))
	for _, row := range changed {
		ids = append(ids, row.MessageID)
	}
	r.metrics.ShadowEvents(metrics.EventDeleted, len(changed))
	r.publish(Event{Kind: EventDeleted, OwnerID: owner, ConversationKey: changed[0].ConversationKey, MessageIDs: ids})

	if r.onDeleted != nil {
		r.onDeleted(ctx, owner)
	}
	return nil
}

func (r *Reconciler) resolveOwner(ctx context.Context, connectionID string) (int64, error) {
	owner, err := r.owners.ResolveOwner(ctx, connectionID)
	if err != nil {
		r.metrics.ResolveFailed()
		return 0, fmt.Errorf("shadow: resolving business connection %q: %w", connectionID, err)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("owner_id", owner))
	return owner, nil
}

// notify runs send and logs its failure. It never affects the data
// mutation that preceded it.
func (r *Reconciler) notify(ctx context.Context, kind string, ownerID int64, send func(context.Context) error) {
	if err := send(ctx); err != nil {
		r.metrics.NotifyFailed(kind)
		r.logger.Warn("owner notification failed", "kind", kind, "owner_id", ownerID, "error", err)
	}
}

func (r *Reconciler) publish(ev Event) {
	if r.sink == nil {
		return
	}
	ev.At = r.now()
	r.sink.Publish(ev)
}

func senderID(msg *telegram.Message) int64 {
	if msg.From != nil {
		return msg.From.ID
	}
	return msg.Chat.ID
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
