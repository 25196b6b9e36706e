// Package transcript renders the shadowed messages of a conversation as
// paginated HTML for the owner.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/delixor/shadowbot/internal/shadow"
	"github.com/delixor/shadowbot/internal/store"
	"github.com/delixor/shadowbot/internal/telegram"
)

const (
	// DefaultPageSize is the number of messages on one transcript page.
	DefaultPageSize = 20

	// MaxPageSize keeps a full page of media links within one message.
	MaxPageSize = 20

	maxNameRunes   = 64
	maxHandleRunes = 32

	// UnknownName names a participant that cannot be identified.
	UnknownName = "Неизвестный"

	// EmptyText is shown for a conversation without messages.
	EmptyText = "💬 Сообщения в этом чате отсутствуют."

	// MediaPrefix is the deep-link payload prefix of media tokens.
	MediaPrefix = "media_"
)

// ErrEmpty is returned by Render for a conversation without messages.
var ErrEmpty = errors.New("transcript: conversation has no messages")

// Request selects one page of one conversation.
type Request struct {
	Key       string
	OwnerID   int64
	OwnerName string
	// Page is 1-based; out-of-range values are clamped.
	Page int
}

// Navigation describes where a page sits in the transcript.
type Navigation struct {
	Page    int
	Pages   int
	HasPrev bool
	HasNext bool
}

// Page is one rendered transcript page.
type Page struct {
	Text         string
	Interlocutor string
	Navigation   Navigation
}

// Chat is one entry of the owner's conversation list.
type Chat struct {
	Key  string
	Name string
}

// Renderer reads conversations from the shadow store.
type Renderer struct {
	store       store.MessageStore
	botUsername string
	pageSize    int
}

// NewRenderer creates a Renderer. Media links point at botUsername; a
// non-positive pageSize selects DefaultPageSize and larger ones are capped
// at MaxPageSize.
func NewRenderer(s store.MessageStore, botUsername string, pageSize int) *Renderer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, MaxPageSize)
	return &Renderer{store: s, botUsername: botUsername, pageSize: pageSize}
}

// Paginate clamps page into [1, pages] for total items and returns the
// half-open item range of that page.
func Paginate(total, pageSize, page int) (start, end int, nav Navigation) {
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	page = min(max(page, 1), pages)

	start = (page - 1) * pageSize
	end = min(start+pageSize, total)
	nav = Navigation{
		Page:    page,
		Pages:   pages,
		HasPrev: page > 1,
		HasNext: page < pages,
	}
	return start, end, nav
}

// Render renders one page of req.Key.
func (r *Renderer) Render(ctx context.Context, req Request) (*Page, error) {
	msgs, err := r.store.ListMessages(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("transcript: listing %s: %w", req.Key, err)
	}
	if len(msgs) == 0 {
		return nil, ErrEmpty
	}

	name, err := r.Interlocutor(ctx, req.Key, req.OwnerID)
	if err != nil {
		return nil, err
	}

	start, end, nav := Paginate(len(msgs), r.pageSize, req.Page)

	var b strings.Builder
	fmt.Fprintf(&b, "<b>💬 Чат: %s ↔ %s</b>\n",
		telegram.EscapeHTMLLimit(req.OwnerName, maxNameRunes), telegram.EscapeHTMLLimit(name, maxNameRunes))
	if nav.Pages > 1 {
		fmt.Fprintf(&b, "<i>Страница %d из %d</i>\n", nav.Page, nav.Pages)
	}
	b.WriteString("\n")

	// Each message gets an equal share of what the header leaves, so long
	// messages are shortened instead of pushing others off the page.
	budget := (telegram.MaxMessageRunes - utf8.RuneCountInString(b.String())) / r.pageSize
	for _, m := range msgs[start:end] {
		prefix := "<b>@" + telegram.EscapeHTMLLimit(m.Handle(), maxHandleRunes) + ":</b> "
		b.WriteString(prefix)
		b.WriteString(r.body(m, budget-utf8.RuneCountInString(prefix)-2))
		b.WriteString("\n\n")
	}

	return &Page{
		Text:         strings.TrimRight(b.String(), "\n"),
		Interlocutor: name,
		Navigation:   nav,
	}, nil
}

// body renders one message in at most limit runes. Media never appears
// inline: it is replaced by a deep link that makes the bot send the file
// on request. Links are never cut.
func (r *Renderer) body(m *store.ShadowMessage, limit int) string {
	marker := ""
	if m.Deleted {
		marker = store.DeletedMarker + " "
	}
	if m.HasMedia() && m.MediaToken != "" {
		return marker + telegram.Link(telegram.DeepLink(r.botUsername, MediaPrefix+m.MediaToken), shadow.Placeholder(m.Kind, ""))
	}
	return marker + telegram.EscapeHTMLLimit(store.StripDeletedMarker(m.Content), limit-utf8.RuneCountInString(marker))
}

// Interlocutor returns the most recent display name of the counterparty of
// key, "ID {counterparty}" when the counterparty never wrote, or
// UnknownName when key does not name one.
func (r *Renderer) Interlocutor(ctx context.Context, key string, ownerID int64) (string, error) {
	_, counterparty, ok := shadow.ParseConversationKey(key)
	if !ok || counterparty == ownerID {
		return UnknownName, nil
	}
	name, err := r.store.LatestSenderName(ctx, key, counterparty)
	if errors.Is(err, store.ErrNotFound) || (err == nil && name == "") {
		return "ID " + strconv.FormatInt(counterparty, 10), nil
	}
	if err != nil {
		return "", fmt.Errorf("transcript: interlocutor of %s: %w", key, err)
	}
	return name, nil
}

// Chats lists the conversations of ownerID, most recently active first.
func (r *Renderer) Chats(ctx context.Context, ownerID int64) ([]Chat, error) {
	keys, err := r.store.ListConversationKeys(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("transcript: listing chats of %d: %w", ownerID, err)
	}
	chats := make([]Chat, 0, len(keys))
	for _, key := range keys {
		name, err := r.Interlocutor(ctx, key, ownerID)
		if err != nil {
			return nil, err
		}
		chats = append(chats, Chat{Key: key, Name: name})
	}
	return chats, nil
}
