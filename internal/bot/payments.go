package bot

import (
	"context"
	"fmt"

	"github.com/delixor/shadowbot/internal/subscription"
	"github.com/delixor/shadowbot/internal/telegram"
)

// checkPayment validates an invoice payload against the plan table and the
// paying user.
func (b *Bot) checkPayment(payload, currency string, amount int, payerID int64) (subscription.Plan, bool) {
	planID, ownerID, ok := subscription.ParseInvoicePayload(payload)
	if !ok || ownerID != payerID {
		return subscription.Plan{}, false
	}
	plan, ok := b.subs.Plans().ByID(planID)
	if !ok || currency != subscription.Currency || amount != plan.Stars {
		return subscription.Plan{}, false
	}
	return plan, true
}

func (b *Bot) onPreCheckout(ctx context.Context, q *telegram.PreCheckoutQuery) error {
	payerID := q.From.ID
	_, ok := b.checkPayment(q.InvoicePayload, q.Currency, q.TotalAmount, payerID)

	answer := telegram.AnswerPreCheckoutQueryRequest{PreCheckoutQueryID: q.ID, OK: ok}
	if !ok {
		answer.ErrorMessage = textPayRejected
		b.logger.Warn("pre-checkout rejected", "payer_id", payerID, "payload", q.InvoicePayload)
	}
	if err := b.api.AnswerPreCheckoutQuery(ctx, answer); err != nil {
		return fmt.Errorf("bot: answering pre-checkout %s: %w", q.ID, err)
	}
	return nil
}

func (b *Bot) onSuccessfulPayment(ctx context.Context, msg *telegram.Message) error {
	pay := msg.SuccessfulPayment
	if msg.From == nil {
		return fmt.Errorf("bot: payment %s without payer", pay.TelegramPaymentChargeID)
	}
	plan, ok := b.checkPayment(pay.InvoicePayload, pay.Currency, pay.TotalAmount, msg.From.ID)
	if !ok {
		return fmt.Errorf("bot: payment %s has unexpected payload %q", pay.TelegramPaymentChargeID, pay.InvoicePayload)
	}

	until, err := b.subs.Activate(ctx, msg.From.ID, plan, pay.TelegramPaymentChargeID)
	if err != nil {
		return fmt.Errorf("bot: activating %s for %d: %w", plan.ID, msg.From.ID, err)
	}
	b.logger.Info("subscription paid",
		"owner_id", msg.From.ID,
		"plan", plan.ID,
		"charge_id", pay.TelegramPaymentChargeID,
		"until", until,
	)
	return b.send(ctx, msg.Chat.ID, paidText(until), nil)
}
