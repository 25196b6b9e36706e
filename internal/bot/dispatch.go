package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/delixor/shadowbot/internal/telegram"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HandleUpdate routes one update. It has the signature of telegram.Handler
// and never returns an error: failures and panics are logged, and the
// update is considered consumed.
func (b *Bot) HandleUpdate(ctx context.Context, update *telegram.Update) {
	b.dispatchMutex.Lock()
	defer b.dispatchMutex.Unlock()

	kind := update.Kind()
	if kind == "" {
		return
	}
	b.metrics.Update(kind)

	ctx, span := b.tracer.Start(ctx, "bot.update")
	span.SetAttributes(attribute.String("update.kind", kind), attribute.Int("update.id", update.UpdateID))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			b.metrics.Panic()
			span.SetStatus(codes.Error, fmt.Sprint(r))
			b.logger.Error("update handler panicked",
				"update_id", update.UpdateID,
				"kind", kind,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		b.metrics.ObserveHandle(kind, time.Since(start).Seconds())
		span.End()
	}()

	if err := b.route(ctx, update); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Error("update handling failed", "update_id", update.UpdateID, "kind", kind, "error", err)
	}
}

func (b *Bot) route(ctx context.Context, update *telegram.Update) error {
	switch {
	case update.BusinessConnection != nil:
		return b.onBusinessConnection(ctx, update.BusinessConnection)
	case update.BusinessMessage != nil:
		return b.reconciler.OnNewMessage(ctx, update.BusinessMessage)
	case update.EditedBusinessMessage != nil:
		return b.reconciler.OnEditedMessage(ctx, update.EditedBusinessMessage)
	case update.DeletedBusinessMessages != nil:
		return b.reconciler.OnDeletedMessages(ctx, update.DeletedBusinessMessages)
	case update.CallbackQuery != nil:
		return b.onCallback(ctx, update.CallbackQuery)
	case update.PreCheckoutQuery != nil:
		return b.onPreCheckout(ctx, update.PreCheckoutQuery)
	case update.Message != nil:
		return b.onMessage(ctx, update.Message)
	}
	return nil
}

func (b *Bot) onBusinessConnection(ctx context.Context, bc *telegram.BusinessConnection) error {
	if b.connections != nil {
		b.connections.Observe(ctx, bc)
	}
	b.logger.Info("business connection changed",
		"connection", bc.ID,
		"owner_id", bc.UserChatID,
		"enabled", bc.IsEnabled,
	)

	text := textDisconnected
	if bc.IsEnabled {
		text = textConnected
	}
	if err := b.send(ctx, bc.UserChatID, text, nil); err != nil {
		return fmt.Errorf("bot: greeting owner %d: %w", bc.UserChatID, err)
	}
	return nil
}
