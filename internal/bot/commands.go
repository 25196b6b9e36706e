package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/delixor/shadowbot/internal/store"
	"github.com/delixor/shadowbot/internal/telegram"
	"github.com/delixor/shadowbot/internal/transcript"
)

// parseCommand splits "/cmd@bot arg1 arg2" into "cmd" and its arguments.
// It returns "" for text that is not a command.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), fields[1:]
}

func (b *Bot) onMessage(ctx context.Context, msg *telegram.Message) error {
	if msg.SuccessfulPayment != nil {
		return b.onSuccessfulPayment(ctx, msg)
	}
	if msg.Chat.Type != "private" || msg.From == nil {
		return nil
	}

	cmd, args := parseCommand(msg.Text)
	switch cmd {
	case "start":
		if len(args) > 0 && strings.HasPrefix(args[0], transcript.MediaPrefix) {
			return b.sendStoredMedia(ctx, msg.Chat.ID, strings.TrimPrefix(args[0], transcript.MediaPrefix))
		}
		return b.send(ctx, msg.Chat.ID, greeting(msg.From.FullName()), mainKeyboard(b.instructions))
	case "help":
		return b.send(ctx, msg.Chat.ID, textHelp, backKeyboard())
	case "gift":
		return b.gift(ctx, msg, args)
	case "dump":
		return b.dump(ctx, msg)
	}
	return nil
}

// sendStoredMedia answers a media deep link. The token alone authorizes
// access to the file.
func (b *Bot) sendStoredMedia(ctx context.Context, chatID int64, token string) error {
	row, err := b.store.FindByMediaToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !row.HasMedia()) {
		return b.send(ctx, chatID, textMediaGone, nil)
	}
	if err != nil {
		return fmt.Errorf("bot: resolving media token: %w", err)
	}

	_, err = b.api.SendMedia(ctx, telegram.SendMediaRequest{
		ChatID:  chatID,
		Kind:    string(row.Kind),
		FileID:  row.FileID,
		Caption: row.Caption,
	})
	if err != nil {
		return fmt.Errorf("bot: sending stored %s: %w", row.Kind, err)
	}
	return nil
}

func (b *Bot) gift(ctx context.Context, msg *telegram.Message, args []string) error {
	if !b.IsAdmin(msg.From.ID) {
		return b.send(ctx, msg.Chat.ID, textAdminsOnly, nil)
	}
	if len(args) != 1 {
		return b.send(ctx, msg.Chat.ID, textGiftUsage, nil)
	}
	ownerID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || ownerID <= 0 {
		return b.send(ctx, msg.Chat.ID, textBadUserID, nil)
	}

	until, err := b.subs.Grant(ctx, ownerID, giftDuration)
	if err != nil {
		return fmt.Errorf("bot: gift to %d: %w", ownerID, err)
	}
	b.logger.Info("subscription gifted", "admin_id", msg.From.ID, "owner_id", ownerID, "until", until)

	if err := b.send(ctx, ownerID, giftedText(until), nil); err != nil {
		b.logger.Warn("gift notification failed", "owner_id", ownerID, "error", err)
	}
	return b.send(ctx, msg.Chat.ID, giftDoneText(ownerID, until), nil)
}

// dump uploads a snapshot of the database to the requesting admin.
func (b *Bot) dump(ctx context.Context, msg *telegram.Message) error {
	if !b.IsAdmin(msg.From.ID) {
		return b.send(ctx, msg.Chat.ID, textAdminsOnly, nil)
	}
	if b.snapshots == nil {
		return errors.New("bot: dump requested but no snapshotter is configured")
	}

	dir, err := os.MkdirTemp("", "shadowbot-dump-")
	if err != nil {
		return fmt.Errorf("bot: dump: %w", err)
	}
	defer os.RemoveAll(dir)

	name := "shadowbot-" + b.now().UTC().Format("20060102-150405") + ".db"
	path := filepath.Join(dir, name)
	if err := b.snapshots.Snapshot(ctx, path); err != nil {
		return fmt.Errorf("bot: dump: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("bot: dump: %w", err)
	}
	defer f.Close()

	if _, err := b.api.SendDocumentFile(ctx, msg.Chat.ID, name, f, textDumpCaption); err != nil {
		return fmt.Errorf("bot: uploading dump: %w", err)
	}
	b.logger.Info("database dump sent", "admin_id", msg.From.ID, "file", name)
	return nil
}
