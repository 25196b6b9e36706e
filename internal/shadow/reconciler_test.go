package shadow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/delixor/shadowbot/internal/shadow"
	"github.com/delixor/shadowbot/internal/shadow/shadowtest"
	"github.com/delixor/shadowbot/internal/store"
	"github.com/delixor/shadowbot/internal/store/sqlite"
	"github.com/delixor/shadowbot/internal/telegram"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	owner int64 = 1001
	peer  int64 = 2002
	conn        = "conn-1"
)

type fixture struct {
	rec      *shadow.Reconciler
	store    *sqlite.Store
	gate     *shadowtest.Gate
	notifier *shadowtest.Notifier
	sink     *shadowtest.Sink
	spans    *tracetest.SpanRecorder
	deleted  []int64
}

func newFixture(t *testing.T, active bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	s, err := sqlite.Open(context.Background(), sqlite.Config{Path: filepath.Join(dir, "shadow.db")}, dir, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	f := &fixture{
		store:    s,
		gate:     shadowtest.NewGate(),
		notifier: &shadowtest.Notifier{},
		sink:     &shadowtest.Sink{},
		spans:    tracetest.NewSpanRecorder(),
	}
	f.gate.Set(owner, active)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(f.spans))
	f.rec = shadow.NewReconciler(shadow.Options{
		Owners:   shadowtest.Owners{conn: owner},
		Gate:     f.gate,
		Store:    s,
		Notifier: f.notifier,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sink:     f.sink,
		Tracer:   tp.Tracer("test"),
		OnDeleted: func(_ context.Context, ownerID int64) {
			f.deleted = append(f.deleted, ownerID)
		},
	})
	return f
}

func fromPeer(id int) *telegram.Message {
	return &telegram.Message{
		MessageID:            id,
		BusinessConnectionID: conn,
		From:                 &telegram.User{ID: peer, FirstName: "Carol", Username: "carol"},
		Chat:                 telegram.Chat{ID: peer, Type: "private"},
	}
}

func fromOwner(id int) *telegram.Message {
	return &telegram.Message{
		MessageID:            id,
		BusinessConnectionID: conn,
		From:                 &telegram.User{ID: owner, FirstName: "Olga"},
		Chat:                 telegram.Chat{ID: peer, Type: "private"},
	}
}

func deleted(chatID int64, ids ...int) *telegram.BusinessMessagesDeleted {
	return &telegram.BusinessMessagesDeleted{
		BusinessConnectionID: conn,
		Chat:                 telegram.Chat{ID: chatID, Type: "private"},
		MessageIDs:           ids,
	}
}

func (f *fixture) row(t *testing.T, key string, id int) *store.ShadowMessage {
	t.Helper()
	row, err := f.store.FindByKeyAndMessageID(context.Background(), key, id)
	if err != nil {
		t.Fatalf("find %s/%d: %v", key, id, err)
	}
	return row
}

func TestPhotoCapturedThenDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	key := shadow.KeyFor(owner, peer)

	msg := fromPeer(1)
	msg.Photo = []telegram.PhotoSize{{FileID: "thumb"}, {FileID: "photo-1"}}
	msg.Caption = "hi"
	if err := f.rec.OnNewMessage(ctx, msg); err != nil {
		t.Fatalf("OnNewMessage() error: %v", err)
	}

	row := f.row(t, key, 1)
	if row.Kind != store.KindPhoto || row.Content != "hi" || row.FileID != "photo-1" {
		t.Fatalf("captured row = %+v", row)
	}
	if row.MediaToken == "" {
		t.Fatal("captured photo has no media token")
	}
	if len(f.notifier.Texts) != 0 || len(f.notifier.Upsells) != 0 {
		t.Fatalf("capture notified the owner: %+v", f.notifier)
	}

	if err := f.rec.OnDeletedMessages(ctx, deleted(peer, 1)); err != nil {
		t.Fatalf("OnDeletedMessages() error: %v", err)
	}

	row = f.row(t, key, 1)
	if !row.Deleted {
		t.Error("row not flagged deleted")
	}
	if row.Content != store.DeletedMarker+"hi" {
		t.Errorf("Content = %q, want %q", row.Content, store.DeletedMarker+"hi")
	}

	if len(f.notifier.Texts) != 1 {
		t.Fatalf("texts = %d, want 1", len(f.notifier.Texts))
	}
	if n := f.notifier.Texts[0]; n.OwnerID != owner || !strings.Contains(n.HTML, "hi") || !strings.Contains(n.HTML, "@carol удалил сообщение") {
		t.Errorf("delete notice = %+v", n)
	}
	if len(f.notifier.Media) != 1 {
		t.Fatalf("media = %d, want 1", len(f.notifier.Media))
	}
	media := f.notifier.Media[0]
	if media.Kind != store.KindPhoto || media.FileID != "photo-1" || media.Caption != "🗑️ @carol удалил медиа\nhi" {
		t.Errorf("recovered media = %+v", media)
	}
	if len(f.deleted) != 1 || f.deleted[0] != owner {
		t.Errorf("OnDeleted calls = %v, want [%d]", f.deleted, owner)
	}
}

func TestInactiveOwnerGetsOneUpsell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	msg := fromPeer(1)
	msg.Text = "hello"
	if err := f.rec.OnNewMessage(ctx, msg); err != nil {
		t.Fatalf("OnNewMessage() error: %v", err)
	}

	if _, err := f.store.FindByKeyAndMessageID(ctx, shadow.KeyFor(owner, peer), 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("find error = %v, want ErrNotFound", err)
	}
	if len(f.notifier.Upsells) != 1 || f.notifier.Upsells[0] != owner {
		t.Errorf("upsells = %v, want [%d]", f.notifier.Upsells, owner)
	}
	events := f.sink.Events()
	if len(events) != 1 || events[0].Kind != shadow.EventUpsell {
		t.Errorf("events = %+v", events)
	}
}

func TestOwnerAuthoredMessageSharesKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	in := fromPeer(1)
	in.Text = "ping"
	out := fromOwner(2)
	out.Text = "pong"
	for _, m := range []*telegram.Message{in, out} {
		if err := f.rec.OnNewMessage(ctx, m); err != nil {
			t.Fatalf("OnNewMessage() error: %v", err)
		}
	}

	rows, err := f.store.ListMessages(ctx, shadow.KeyFor(owner, peer))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[1].SenderID != owner || rows[1].Content != "pong" {
		t.Errorf("owner row = %+v", rows[1])
	}
}

func TestDuplicateCaptureIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	msg := fromPeer(1)
	msg.Text = "once"
	for range 2 {
		if err := f.rec.OnNewMessage(ctx, msg); err != nil {
			t.Fatalf("OnNewMessage() error: %v", err)
		}
	}

	rows, err := f.store.ListMessages(ctx, shadow.KeyFor(owner, peer))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if got := len(f.sink.Events()); got != 1 {
		t.Errorf("events = %d, want 1", got)
	}
}

func TestServiceMessageNotStored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	if err := f.rec.OnNewMessage(ctx, fromPeer(1)); err != nil {
		t.Fatalf("OnNewMessage() error: %v", err)
	}
	n, err := f.store.CountMessages(ctx, owner)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestEditNotifiesOldAndNew(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	key := shadow.KeyFor(owner, peer)

	msg := fromPeer(1)
	msg.Text = "before"
	if err := f.rec.OnNewMessage(ctx, msg); err != nil {
		t.Fatalf("OnNewMessage() error: %v", err)
	}

	edit := fromPeer(1)
	edit.Text = "after"
	if err := f.rec.OnEditedMessage(ctx, edit); err != nil {
		t.Fatalf("OnEditedMessage() error: %v", err)
	}

	row := f.row(t, key, 1)
	if row.Content != "after" || row.EditedAt == nil {
		t.Errorf("edited row = %+v", row)
	}
	if len(f.notifier.Texts) != 1 {
		t.Fatalf("texts = %d, want 1", len(f.notifier.Texts))
	}
	want := shadow.EditNotice("carol", "before", "after")
	if got := f.notifier.Texts[0].HTML; got != want {
		t.Errorf("notice = %q, want %q", got, want)
	}
}

func TestEditIgnoredCases(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	msg := fromPeer(1)
	msg.Text = "kept"
	if err := f.rec.OnNewMessage(ctx, msg); err != nil {
		t.Fatalf("OnNewMessage() error: %v", err)
	}

	noText := fromPeer(1)
	noText.Caption = "caption only"
	unknown := fromPeer(99)
	unknown.Text = "ghost"

	for _, m := range []*telegram.Message{noText, unknown} {
		if err := f.rec.OnEditedMessage(ctx, m); err != nil {
			t.Fatalf("OnEditedMessage() error: %v", err)
		}
	}

	if row := f.row(t, shadow.KeyFor(owner, peer), 1); row.Content != "kept" || row.EditedAt != nil {
		t.Errorf("row changed: %+v", row)
	}
	if len(f.notifier.Texts) != 0 {
		t.Errorf("texts = %d, want 0", len(f.notifier.Texts))
	}
}

func TestEditOfInactiveOwnerStillApplied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	msg := fromPeer(1)
	msg.Text = "v1"
	if err := f.rec.OnNewMessage(ctx, msg); err != nil {
		t.Fatalf("OnNewMessage() error: %v", err)
	}
	f.gate.Set(owner, false)

	edit := fromPeer(1)
	edit.Text = "v2"
	if err := f.rec.OnEditedMessage(ctx, edit); err != nil {
		t.Fatalf("OnEditedMessage() error: %v", err)
	}
	if row := f.row(t, shadow.KeyFor(owner, peer), 1); row.Content != "v2" {
		t.Errorf("Content = %q, want v2", row.Content)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	msg := fromPeer(1)
	msg.Text = "bye"
	if err := f.rec.OnNewMessage(ctx, msg); err != nil {
		t.Fatalf("OnNewMessage() error: %v", err)
	}

	for range 2 {
		if err := f.rec.OnDeletedMessages(ctx, deleted(peer, 1)); err != nil {
			t.Fatalf("OnDeletedMessages() error: %v", err)
		}
	}

	row := f.row(t, shadow.KeyFor(owner, peer), 1)
	if row.Content != store.DeletedMarker+"bye" || strings.Count(row.Content, store.DeletedMarker) != 1 {
		t.Errorf("Content = %q, want a single marker", row.Content)
	}
	if len(f.notifier.Texts) != 1 {
		t.Errorf("texts = %d, want 1", len(f.notifier.Texts))
	}
	if len(f.deleted) != 1 {
		t.Errorf("OnDeleted calls = %d, want 1", len(f.deleted))
	}
}

func TestDeleteFallsBackToOwnerScan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	msg := fromPeer(7)
	msg.Text = "elsewhere"
	if err := f.rec.OnNewMessage(ctx, msg); err != nil {
		t.Fatalf("OnNewMessage() error: %v", err)
	}

	// The owner deleted the message from a chat view whose id differs.
	if err := f.rec.OnDeletedMessages(ctx, deleted(owner, 7)); err != nil {
		t.Fatalf("OnDeletedMessages() error: %v", err)
	}
	if row := f.row(t, shadow.KeyFor(owner, peer), 7); !row.Deleted {
		t.Error("fallback scan did not mark the row deleted")
	}
}

func TestDeleteUnknownIsNoop(t *testing.T) {
	f := newFixture(t, true)
	if err := f.rec.OnDeletedMessages(context.Background(), deleted(peer, 42)); err != nil {
		t.Fatalf("OnDeletedMessages() error: %v", err)
	}
	if len(f.notifier.Texts) != 0 || len(f.deleted) != 0 {
		t.Errorf("unexpected side effects: texts=%d deleted=%v", len(f.notifier.Texts), f.deleted)
	}
}

func TestNotificationFailuresDoNotBlockDeletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.notifier.TextErr = errors.New("blocked by user")
	f.notifier.MediaErr = errors.New("file expired")

	for i, kind := range []string{"photo", "voice"} {
		msg := fromPeer(i + 1)
		switch kind {
		case "photo":
			msg.Photo = []telegram.PhotoSize{{FileID: "p"}}
		case "voice":
			msg.Voice = &telegram.Voice{FileID: "v"}
		}
		if err := f.rec.OnNewMessage(ctx, msg); err != nil {
			t.Fatalf("OnNewMessage() error: %v", err)
		}
	}

	if err := f.rec.OnDeletedMessages(ctx, deleted(peer, 1, 2)); err != nil {
		t.Fatalf("OnDeletedMessages() error: %v", err)
	}

	key := shadow.KeyFor(owner, peer)
	for _, id := range []int{1, 2} {
		if row := f.row(t, key, id); !row.Deleted {
			t.Errorf("message %d not deleted", id)
		}
	}
	if len(f.notifier.Media) != 2 {
		t.Errorf("media attempts = %d, want 2", len(f.notifier.Media))
	}
}

func TestUnresolvedConnectionAbortsEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	msg := fromPeer(1)
	msg.Text = "lost"
	msg.BusinessConnectionID = "revoked"

	err := f.rec.OnNewMessage(ctx, msg)
	if !errors.Is(err, shadowtest.ErrUnknownConnection) {
		t.Fatalf("OnNewMessage() error = %v, want ErrUnknownConnection", err)
	}
	if n, _ := f.store.CountMessages(ctx, owner); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}

	spans := f.spans.Ended()
	if len(spans) != 1 || spans[0].Name() != "shadow.new_message" {
		t.Fatalf("spans = %d", len(spans))
	}
	if len(spans[0].Events()) == 0 {
		t.Error("span did not record the error")
	}
}

func TestEventsCarryIdentifiersOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	msg := fromPeer(3)
	msg.Text = "secret"
	if err := f.rec.OnNewMessage(ctx, msg); err != nil {
		t.Fatalf("OnNewMessage() error: %v", err)
	}

	events := f.sink.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Kind != shadow.EventCaptured || ev.OwnerID != owner || ev.ConversationKey != shadow.KeyFor(owner, peer) {
		t.Errorf("event = %+v", ev)
	}
	if ev.At.IsZero() || time.Since(ev.At) > time.Minute {
		t.Errorf("At = %v", ev.At)
	}
}
