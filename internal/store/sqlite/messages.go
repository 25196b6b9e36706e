package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/delixor/shadowbot/internal/store"
)

const messageColumns = `id, conversation_key, message_id, sender_id, sender_username, sender_name,
	content, content_kind, file_id, caption, media_token, deleted, edited_at, created_at`

// Append implements store.MessageStore.
func (s *Store) Append(ctx context.Context, msg *store.ShadowMessage) (bool, error) {
	if msg.Kind == "" {
		msg.Kind = store.KindText
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	createdAt = createdAt.UTC()

	token := ""
	if msg.HasMedia() {
		token = uuid.NewString()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO shadow_messages (conversation_key, message_id, sender_id, sender_username, sender_name,
		                             content, content_kind, file_id, caption, media_token, deleted, edited_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?)
		ON CONFLICT(conversation_key, message_id) DO NOTHING`,
		msg.ConversationKey, msg.MessageID, msg.SenderID, msg.SenderUsername, msg.SenderName,
		msg.Content, string(msg.Kind), nullString(msg.FileID), nullString(msg.Caption), nullString(token),
		formatTime(createdAt),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: append message: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("sqlite: last insert id: %w", err)
	}

	msg.ID = id
	msg.MediaToken = token
	msg.Deleted = false
	msg.EditedAt = nil
	msg.CreatedAt = createdAt
	return true, nil
}

// FindByKeyAndMessageID implements store.MessageStore.
func (s *Store) FindByKeyAndMessageID(ctx context.Context, key string, messageID int) (*store.ShadowMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM shadow_messages WHERE conversation_key = ? AND message_id = ?`,
		key, messageID,
	)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find message: %w", err)
	}
	return msg, nil
}

// FindByKeyAndMessageIDs implements store.MessageStore.
func (s *Store) FindByKeyAndMessageIDs(ctx context.Context, key string, messageIDs []int) ([]*store.ShadowMessage, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(messageIDs)+1)
	args = append(args, key)
	args = appendInts(args, messageIDs)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM shadow_messages
		 WHERE conversation_key = ? AND message_id IN (`+placeholders(len(messageIDs))+`)
		 ORDER BY created_at, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find messages: %w", err)
	}
	return collectMessages(rows)
}

// FindByOwnerAndMessageIDs implements store.MessageStore.
func (s *Store) FindByOwnerAndMessageIDs(ctx context.Context, ownerID int64, messageIDs []int) ([]*store.ShadowMessage, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(messageIDs)+1)
	args = append(args, ownerPattern(ownerID))
	args = appendInts(args, messageIDs)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM shadow_messages
		 WHERE conversation_key LIKE ? ESCAPE '\' AND message_id IN (`+placeholders(len(messageIDs))+`)
		 ORDER BY created_at, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find owner messages: %w", err)
	}
	return collectMessages(rows)
}

// FindByMediaToken implements store.MessageStore.
func (s *Store) FindByMediaToken(ctx context.Context, token string) (*store.ShadowMessage, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM shadow_messages WHERE media_token = ?`,
		token,
	)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find by media token: %w", err)
	}
	return msg, nil
}

// ApplyEdit implements store.MessageStore.
func (s *Store) ApplyEdit(ctx context.Context, msg *store.ShadowMessage, newText string, at time.Time) error {
	at = at.UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE shadow_messages SET content = ?, edited_at = ? WHERE id = ?`,
		newText, formatTime(at), msg.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: apply edit: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	msg.Content = newText
	msg.EditedAt = &at
	return nil
}

// ApplyDeletes implements store.MessageStore.
func (s *Store) ApplyDeletes(ctx context.Context, msgs []*store.ShadowMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `UPDATE shadow_messages SET content = ?, deleted = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare delete: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, msg := range msgs {
		if _, err := stmt.ExecContext(ctx, msg.Content, boolToInt(msg.Deleted), msg.ID); err != nil {
			return fmt.Errorf("sqlite: apply delete %d: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit deletes: %w", err)
	}
	return nil
}

// ListConversationKeys implements store.MessageStore. Most recently active
// conversations come first.
func (s *Store) ListConversationKeys(ctx context.Context, ownerID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversation_key FROM shadow_messages
		WHERE conversation_key LIKE ? ESCAPE '\'
		GROUP BY conversation_key
		ORDER BY MAX(created_at) DESC, conversation_key`,
		ownerPattern(ownerID),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("sqlite: scan conversation key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list conversations rows: %w", err)
	}
	return keys, nil
}

// ListMessages implements store.MessageStore.
func (s *Store) ListMessages(ctx context.Context, key string) ([]*store.ShadowMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM shadow_messages WHERE conversation_key = ? ORDER BY created_at, id`,
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list messages: %w", err)
	}
	return collectMessages(rows)
}

// LatestSenderName implements store.MessageStore.
func (s *Store) LatestSenderName(ctx context.Context, key string, senderID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT sender_name FROM shadow_messages
		WHERE conversation_key = ? AND sender_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		key, senderID,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: latest sender name: %w", err)
	}
	return name, nil
}

// CountMessages implements store.MessageStore.
func (s *Store) CountMessages(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shadow_messages WHERE conversation_key LIKE ? ESCAPE '\'`,
		ownerPattern(ownerID),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count messages: %w", err)
	}
	return n, nil
}

// PurgeOlderThan implements store.MessageStore.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM shadow_messages WHERE created_at < ?`,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge messages: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.ShadowMessage, error) {
	var (
		msg       store.ShadowMessage
		kind      string
		fileID    sql.NullString
		caption   sql.NullString
		token     sql.NullString
		deleted   int
		editedAt  sql.NullString
		createdAt string
	)
	if err := row.Scan(
		&msg.ID, &msg.ConversationKey, &msg.MessageID, &msg.SenderID, &msg.SenderUsername, &msg.SenderName,
		&msg.Content, &kind, &fileID, &caption, &token, &deleted, &editedAt, &createdAt,
	); err != nil {
		return nil, err
	}

	msg.Kind = store.ContentKind(kind)
	msg.FileID = fileID.String
	msg.Caption = caption.String
	msg.MediaToken = token.String
	msg.Deleted = deleted != 0

	if editedAt.Valid {
		t, err := parseTime(editedAt.String)
		if err != nil {
			return nil, err
		}
		msg.EditedAt = &t
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	msg.CreatedAt = t

	return &msg, nil
}

func collectMessages(rows *sql.Rows) ([]*store.ShadowMessage, error) {
	defer func() { _ = rows.Close() }()

	var msgs []*store.ShadowMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan messages rows: %w", err)
	}
	return msgs, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ownerPattern returns a LIKE pattern matching every conversation key of
// ownerID. The key separator is a LIKE wildcard and must be escaped, or
// owner 12 would also match "123_...".
func ownerPattern(ownerID int64) string {
	return likeEscaper.Replace(store.OwnerPrefix(ownerID)) + "%"
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func appendInts(args []any, ids []int) []any {
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
