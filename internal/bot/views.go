package bot

import (
	"context"

	"github.com/delixor/shadowbot/internal/telegram"
	"github.com/delixor/shadowbot/internal/transcript"
)

// openTranscript is the transcript page an owner has on screen.
type openTranscript struct {
	chatID    int64
	messageID int
	key       string
	page      int
	ownerName string
}

func (b *Bot) rememberView(ownerID int64, v openTranscript) {
	b.viewsMu.Lock()
	defer b.viewsMu.Unlock()
	b.views[ownerID] = v
}

func (b *Bot) forgetView(ownerID int64) {
	b.viewsMu.Lock()
	defer b.viewsMu.Unlock()
	delete(b.views, ownerID)
}

// RefreshTranscript re-renders the transcript page ownerID has open, if
// any, so deletion markers show up without navigating away. It has the
// shape of the reconciler's OnDeleted hook. Failures are only logged.
func (b *Bot) RefreshTranscript(ctx context.Context, ownerID int64) {
	b.viewsMu.Lock()
	v, ok := b.views[ownerID]
	b.viewsMu.Unlock()
	if !ok {
		return
	}

	p, err := b.renderer.Render(ctx, transcript.Request{
		Key:       v.key,
		OwnerID:   ownerID,
		OwnerName: v.ownerName,
		Page:      v.page,
	})
	if err != nil {
		b.logger.Debug("transcript refresh skipped", "owner_id", ownerID, "key", v.key, "error", err)
		return
	}
	msg := &telegram.Message{MessageID: v.messageID, Chat: telegram.Chat{ID: v.chatID}}
	if err := b.edit(ctx, msg, p.Text, transcriptKeyboard(v.key, p.Navigation)); err != nil {
		b.logger.Debug("transcript refresh failed", "owner_id", ownerID, "key", v.key, "error", err)
	}
}
