package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/delixor/shadowbot/internal/shadow"
	"github.com/delixor/shadowbot/internal/subscription"
	"github.com/delixor/shadowbot/internal/telegram"
	"github.com/delixor/shadowbot/internal/transcript"
)

func (b *Bot) onCallback(ctx context.Context, q *telegram.CallbackQuery) error {
	notice, err := b.handleCallback(ctx, q)

	if aerr := b.api.AnswerCallbackQuery(ctx, telegram.AnswerCallbackQueryRequest{
		CallbackQueryID: q.ID,
		Text:            notice,
	}); aerr != nil {
		b.logger.Debug("answering callback failed", "callback_id", q.ID, "error", aerr)
	}
	return err
}

// handleCallback performs the action behind q.Data. The returned notice,
// if any, is shown to the user as a toast.
func (b *Bot) handleCallback(ctx context.Context, q *telegram.CallbackQuery) (string, error) {
	// Menus live in the message that carries the keyboard; inline-mode
	// callbacks have none.
	msg := q.Message
	if msg == nil {
		return "", nil
	}
	user := &q.From
	if q.Data != cbNoop {
		b.forgetView(user.ID)
	}

	switch data := q.Data; {
	case data == cbNoop:
		return "", nil
	case data == cbBack:
		return "", b.edit(ctx, msg, greeting(user.FullName()), mainKeyboard(b.instructions))
	case data == cbHelp:
		return "", b.edit(ctx, msg, textHelp, backKeyboard())
	case data == cbProfile:
		return "", b.showProfile(ctx, msg, user)
	case data == cbPeriods:
		return "", b.showPeriods(ctx, msg, user.ID)
	case strings.HasPrefix(data, cbPayPfx):
		return "", b.sendInvoice(ctx, user.ID, strings.TrimPrefix(data, cbPayPfx))
	case data == cbAllChats:
		return "", b.showChats(ctx, msg, user)
	case strings.HasPrefix(data, cbOpenChat+":"):
		return b.showTranscript(ctx, msg, user, data)
	default:
		b.logger.Debug("unknown callback data", "data", data, "user_id", user.ID)
		return "", nil
	}
}

func (b *Bot) showProfile(ctx context.Context, msg *telegram.Message, user *telegram.User) error {
	sub, err := b.subs.Get(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("bot: profile of %d: %w", user.ID, err)
	}
	stored, err := b.store.CountMessages(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("bot: profile of %d: %w", user.ID, err)
	}
	return b.edit(ctx, msg, profileText(user, sub, b.now(), stored), backKeyboard())
}

func (b *Bot) showPeriods(ctx context.Context, msg *telegram.Message, ownerID int64) error {
	sub, err := b.subs.Get(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("bot: periods for %d: %w", ownerID, err)
	}
	if sub.ActiveAt(b.now()) {
		return b.edit(ctx, msg, alreadyActiveText(*sub.ActiveUntil), backKeyboard())
	}
	plans := b.subs.Plans()
	return b.edit(ctx, msg, periodsText(plans), periodsKeyboard(plans))
}

// sendInvoice issues a Stars invoice for planID unless the owner already
// has an active subscription.
func (b *Bot) sendInvoice(ctx context.Context, ownerID int64, planID string) error {
	plan, ok := b.subs.Plans().ByID(planID)
	if !ok {
		return fmt.Errorf("bot: unknown plan %q", planID)
	}

	sub, err := b.subs.Get(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("bot: invoice for %d: %w", ownerID, err)
	}
	if sub.ActiveAt(b.now()) {
		return b.send(ctx, ownerID, alreadyActiveText(*sub.ActiveUntil), nil)
	}

	_, err = b.api.SendInvoice(ctx, telegram.SendInvoiceRequest{
		ChatID:      ownerID,
		Title:       plan.Title,
		Description: invoiceDescription(plan),
		Payload:     subscription.InvoicePayload(plan, ownerID, b.now()),
		Currency:    subscription.Currency,
		Prices:      []telegram.LabeledPrice{{Label: plan.Title, Amount: plan.Stars}},
	})
	if err != nil {
		return fmt.Errorf("bot: invoice %s for %d: %w", plan.ID, ownerID, err)
	}
	return nil
}

func (b *Bot) showChats(ctx context.Context, msg *telegram.Message, user *telegram.User) error {
	chats, err := b.renderer.Chats(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("bot: chats of %d: %w", user.ID, err)
	}
	if len(chats) == 0 {
		return b.edit(ctx, msg, textNoChats, backKeyboard())
	}
	return b.edit(ctx, msg, textChats, chatsKeyboard(user.FullName(), chats))
}

// showTranscript renders one transcript page. Callback data can be forged
// by clients, so the conversation must belong to the caller.
func (b *Bot) showTranscript(ctx context.Context, msg *telegram.Message, user *telegram.User, data string) (string, error) {
	key, page, ok := parseOpenChat(data)
	if !ok {
		return "", fmt.Errorf("bot: malformed callback %q", data)
	}
	if owner, _, ok := shadow.ParseConversationKey(key); !ok || owner != user.ID {
		b.logger.Warn("transcript access denied", "user_id", user.ID, "key", key)
		return textForbidden, nil
	}

	p, err := b.renderer.Render(ctx, transcript.Request{
		Key:       key,
		OwnerID:   user.ID,
		OwnerName: user.FullName(),
		Page:      page,
	})
	if errors.Is(err, transcript.ErrEmpty) {
		return "", b.edit(ctx, msg, transcript.EmptyText, telegram.Keyboard(telegram.Row(backButton(cbAllChats))))
	}
	if err != nil {
		return "", fmt.Errorf("bot: transcript %s: %w", key, err)
	}
	if err := b.edit(ctx, msg, p.Text, transcriptKeyboard(key, p.Navigation)); err != nil {
		return "", err
	}
	b.rememberView(user.ID, openTranscript{
		chatID:    msg.Chat.ID,
		messageID: msg.MessageID,
		key:       key,
		page:      p.Navigation.Page,
		ownerName: user.FullName(),
	})
	return "", nil
}
