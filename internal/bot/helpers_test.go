package bot

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/delixor/shadowbot/internal/store/sqlite"
	"github.com/delixor/shadowbot/internal/subscription"
	"github.com/delixor/shadowbot/internal/telegram"
	"github.com/delixor/shadowbot/internal/transcript"
)

const (
	ownerID int64 = 1001
	peerID  int64 = 2002
	adminID int64 = 9
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type document struct {
	ChatID   int64
	Filename string
	Content  string
	Caption  string
}

// fakeAPI records every Bot API call.
type fakeAPI struct {
	mu        sync.Mutex
	sent      []telegram.SendMessageRequest
	edits     []telegram.EditMessageTextRequest
	answers   []telegram.AnswerCallbackQueryRequest
	media     []telegram.SendMediaRequest
	documents []document
	invoices  []telegram.SendInvoiceRequest
	checkouts []telegram.AnswerPreCheckoutQueryRequest

	// sendErr fails SendMessage for the given chats.
	sendErr map[int64]error
}

func (f *fakeAPI) SendMessage(_ context.Context, req telegram.SendMessageRequest) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	if err := f.sendErr[req.ChatID]; err != nil {
		return nil, err
	}
	return &telegram.Message{MessageID: len(f.sent), Chat: telegram.Chat{ID: req.ChatID}}, nil
}

func (f *fakeAPI) EditMessageText(_ context.Context, req telegram.EditMessageTextRequest) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, req)
	return &telegram.Message{MessageID: req.MessageID, Chat: telegram.Chat{ID: req.ChatID}}, nil
}

func (f *fakeAPI) AnswerCallbackQuery(_ context.Context, req telegram.AnswerCallbackQueryRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, req)
	return nil
}

func (f *fakeAPI) SendMedia(_ context.Context, req telegram.SendMediaRequest) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media = append(f.media, req)
	return &telegram.Message{Chat: telegram.Chat{ID: req.ChatID}}, nil
}

func (f *fakeAPI) SendDocumentFile(_ context.Context, chatID int64, filename string, r io.Reader, caption string) (*telegram.Message, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, document{ChatID: chatID, Filename: filename, Content: string(data), Caption: caption})
	return &telegram.Message{Chat: telegram.Chat{ID: chatID}}, nil
}

func (f *fakeAPI) SendInvoice(_ context.Context, req telegram.SendInvoiceRequest) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices = append(f.invoices, req)
	return &telegram.Message{Chat: telegram.Chat{ID: req.ChatID}}, nil
}

func (f *fakeAPI) AnswerPreCheckoutQuery(_ context.Context, req telegram.AnswerPreCheckoutQueryRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkouts = append(f.checkouts, req)
	return nil
}

func (f *fakeAPI) lastSent(t *testing.T) telegram.SendMessageRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no message sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) lastEdit(t *testing.T) telegram.EditMessageTextRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		t.Fatal("no message edited")
	}
	return f.edits[len(f.edits)-1]
}

// fakeReconciler records routed business events. Setting panicOn makes the
// matching handler panic.
type fakeReconciler struct {
	newMsgs []*telegram.Message
	edited  []*telegram.Message
	deleted []*telegram.BusinessMessagesDeleted
	panicOn string
}

func (r *fakeReconciler) OnNewMessage(_ context.Context, msg *telegram.Message) error {
	if r.panicOn == "new" {
		panic("boom")
	}
	r.newMsgs = append(r.newMsgs, msg)
	return nil
}

func (r *fakeReconciler) OnEditedMessage(_ context.Context, msg *telegram.Message) error {
	r.edited = append(r.edited, msg)
	return nil
}

func (r *fakeReconciler) OnDeletedMessages(_ context.Context, ev *telegram.BusinessMessagesDeleted) error {
	r.deleted = append(r.deleted, ev)
	return nil
}

type fakeConnections struct {
	seen []*telegram.BusinessConnection
}

func (c *fakeConnections) Observe(_ context.Context, bc *telegram.BusinessConnection) {
	c.seen = append(c.seen, bc)
}

type fileSnapshotter struct {
	content string
}

func (s fileSnapshotter) Snapshot(_ context.Context, dest string) error {
	return os.WriteFile(dest, []byte(s.content), 0o600)
}

type fixture struct {
	bot         *Bot
	api         *fakeAPI
	reconciler  *fakeReconciler
	connections *fakeConnections
	store       *sqlite.Store
	subs        *subscription.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	s, err := sqlite.Open(context.Background(), sqlite.Config{Path: filepath.Join(dir, "bot.db")}, dir, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	now := func() time.Time { return testNow }
	f := &fixture{
		api:         &fakeAPI{sendErr: map[int64]error{}},
		reconciler:  &fakeReconciler{},
		connections: &fakeConnections{},
		store:       s,
		subs:        subscription.NewService(subscription.NewGate(s, now), subscription.DefaultPlans()),
	}
	f.bot = New(Options{
		API:           f.api,
		Reconciler:    f.reconciler,
		Store:         s,
		Subscriptions: f.subs,
		Renderer:      transcript.NewRenderer(s, "shadow_bot", 0),
		Connections:   f.connections,
		Snapshots:     fileSnapshotter{content: "sqlite snapshot"},
		Admins:        []int64{adminID},
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:           now,
	})
	return f
}

func (f *fixture) handle(t *testing.T, u *telegram.Update) {
	t.Helper()
	f.bot.HandleUpdate(context.Background(), u)
}

func user(id int64) *telegram.User {
	return &telegram.User{ID: id, FirstName: "Anna", LastName: "K", Username: "anna"}
}

func privateMessage(from int64, text string) *telegram.Update {
	return &telegram.Update{Message: &telegram.Message{
		MessageID: 1,
		From:      user(from),
		Chat:      telegram.Chat{ID: from, Type: "private"},
		Text:      text,
	}}
}

func callback(from int64, data string) *telegram.Update {
	return &telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb-1",
		From:    *user(from),
		Message: &telegram.Message{MessageID: 77, Chat: telegram.Chat{ID: from, Type: "private"}},
		Data:    data,
	}}
}

func buttons(markup *telegram.InlineKeyboardMarkup) []telegram.InlineKeyboardButton {
	if markup == nil {
		return nil
	}
	var out []telegram.InlineKeyboardButton
	for _, row := range markup.InlineKeyboard {
		out = append(out, row...)
	}
	return out
}

func hasCallback(markup *telegram.InlineKeyboardMarkup, data string) bool {
	for _, b := range buttons(markup) {
		if b.CallbackData == data {
			return true
		}
	}
	return false
}
