package bot

import (
	"context"

	"github.com/delixor/shadowbot/internal/shadow"
	"github.com/delixor/shadowbot/internal/store"
	"github.com/delixor/shadowbot/internal/telegram"
)

var _ shadow.Notifier = (*Notifier)(nil)

// Notifier delivers reconciler notifications to owners through the Bot
// API. Owners receive them in their private chat with the bot, whose id
// equals the owner id.
type Notifier struct {
	api API
}

// NewNotifier creates a Notifier.
func NewNotifier(api API) *Notifier {
	return &Notifier{api: api}
}

// NotifyText implements shadow.Notifier.
func (n *Notifier) NotifyText(ctx context.Context, ownerID int64, html string) error {
	_, err := n.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:                ownerID,
		Text:                  html,
		ParseMode:             telegram.ParseModeHTML,
		DisableWebPagePreview: true,
	})
	return err
}

// NotifyUpsell implements shadow.Notifier.
func (n *Notifier) NotifyUpsell(ctx context.Context, ownerID int64) error {
	_, err := n.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      ownerID,
		Text:        textUpsell,
		ParseMode:   telegram.ParseModeHTML,
		ReplyMarkup: upsellKeyboard(),
	})
	return err
}

// SendMedia implements shadow.Notifier. The caption is sent as plain text.
func (n *Notifier) SendMedia(ctx context.Context, ownerID int64, kind store.ContentKind, fileID, caption string) error {
	_, err := n.api.SendMedia(ctx, telegram.SendMediaRequest{
		ChatID:  ownerID,
		Kind:    string(kind),
		FileID:  fileID,
		Caption: caption,
	})
	return err
}
