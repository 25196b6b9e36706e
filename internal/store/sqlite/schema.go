package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		owner_id       INTEGER PRIMARY KEY,
		active_until   TEXT,
		last_charge_id TEXT,
		updated_at     TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS shadow_messages (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_key TEXT    NOT NULL,
		message_id       INTEGER NOT NULL,
		sender_id        INTEGER NOT NULL,
		sender_username  TEXT    NOT NULL DEFAULT '',
		sender_name      TEXT    NOT NULL DEFAULT '',
		content          TEXT    NOT NULL DEFAULT '',
		content_kind     TEXT    NOT NULL DEFAULT 'text',
		file_id          TEXT,
		caption          TEXT,
		media_token      TEXT,
		deleted          INTEGER NOT NULL DEFAULT 0,
		edited_at        TEXT,
		created_at       TEXT    NOT NULL
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_shadow_messages_key_msg
		ON shadow_messages(conversation_key, message_id)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_shadow_messages_token
		ON shadow_messages(media_token) WHERE media_token IS NOT NULL`,

	`CREATE INDEX IF NOT EXISTS idx_shadow_messages_created
		ON shadow_messages(created_at)`,
}

// migrate creates or updates the database schema to the latest version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}

	return nil
}
