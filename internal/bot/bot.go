// Package bot routes Telegram updates to the shadowing engine and serves the
// owner-facing chat interface: menus, transcripts, payments and admin
// commands.
package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/delixor/shadowbot/internal/metrics"
	"github.com/delixor/shadowbot/internal/store"
	"github.com/delixor/shadowbot/internal/subscription"
	"github.com/delixor/shadowbot/internal/telegram"
	"github.com/delixor/shadowbot/internal/transcript"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// API is the subset of telegram.Client the bot talks to.
type API interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (*telegram.Message, error)
	EditMessageText(ctx context.Context, req telegram.EditMessageTextRequest) (*telegram.Message, error)
	AnswerCallbackQuery(ctx context.Context, req telegram.AnswerCallbackQueryRequest) error
	SendMedia(ctx context.Context, req telegram.SendMediaRequest) (*telegram.Message, error)
	SendDocumentFile(ctx context.Context, chatID int64, filename string, r io.Reader, caption string) (*telegram.Message, error)
	SendInvoice(ctx context.Context, req telegram.SendInvoiceRequest) (*telegram.Message, error)
	AnswerPreCheckoutQuery(ctx context.Context, req telegram.AnswerPreCheckoutQueryRequest) error
}

// Reconciler handles business message events.
type Reconciler interface {
	OnNewMessage(ctx context.Context, msg *telegram.Message) error
	OnEditedMessage(ctx context.Context, msg *telegram.Message) error
	OnDeletedMessages(ctx context.Context, ev *telegram.BusinessMessagesDeleted) error
}

// ConnectionObserver is told about business connection changes.
type ConnectionObserver interface {
	Observe(ctx context.Context, bc *telegram.BusinessConnection)
}

// Snapshotter writes a consistent copy of the database to dest.
type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
}

// Options configures a Bot. API, Reconciler, Store, Subscriptions and
// Renderer are required.
type Options struct {
	API           API
	Reconciler    Reconciler
	Store         store.MessageStore
	Subscriptions *subscription.Service
	Renderer      *transcript.Renderer

	Connections     ConnectionObserver
	Snapshots       Snapshotter
	Admins          []int64
	InstructionsURL string

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
	Now     func() time.Time
}

// Bot handles every update kind the bot subscribes to. Updates are handled
// one at a time, whether they arrive through polling or the webhook.
type Bot struct {
	api           API
	reconciler    Reconciler
	store         store.MessageStore
	subs          *subscription.Service
	renderer      *transcript.Renderer
	connections   ConnectionObserver
	snapshots     Snapshotter
	admins        map[int64]struct{}
	instructions  string
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	now           func() time.Time
	dispatchMutex sync.Mutex

	viewsMu sync.Mutex
	views   map[int64]openTranscript
}

// New creates a Bot.
func New(opts Options) *Bot {
	b := &Bot{
		api:          opts.API,
		reconciler:   opts.Reconciler,
		store:        opts.Store,
		subs:         opts.Subscriptions,
		renderer:     opts.Renderer,
		connections:  opts.Connections,
		snapshots:    opts.Snapshots,
		admins:       make(map[int64]struct{}, len(opts.Admins)),
		instructions: opts.InstructionsURL,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		tracer:       opts.Tracer,
		now:          opts.Now,
		views:        make(map[int64]openTranscript),
	}
	for _, id := range opts.Admins {
		b.admins[id] = struct{}{}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.tracer == nil {
		b.tracer = noop.NewTracerProvider().Tracer("")
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// IsAdmin reports whether userID may run admin commands.
func (b *Bot) IsAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error {
	_, err := b.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             telegram.ParseModeHTML,
		DisableWebPagePreview: true,
		ReplyMarkup:           markup,
	})
	return err
}

func (b *Bot) edit(ctx context.Context, msg *telegram.Message, text string, markup *telegram.InlineKeyboardMarkup) error {
	_, err := b.api.EditMessageText(ctx, telegram.EditMessageTextRequest{
		ChatID:                msg.Chat.ID,
		MessageID:             msg.MessageID,
		Text:                  text,
		ParseMode:             telegram.ParseModeHTML,
		DisableWebPagePreview: true,
		ReplyMarkup:           markup,
	})
	return err
}
