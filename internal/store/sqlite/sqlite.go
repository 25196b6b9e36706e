// Package sqlite implements the shadow message and subscription stores on
// SQLite. It uses modernc.org/sqlite (pure Go, no CGO) in WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/delixor/shadowbot/internal/core"
	"github.com/delixor/shadowbot/internal/store"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// timeLayout is fixed-width so that TEXT comparison orders timestamps.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Compile-time interface guards.
var (
	_ store.MessageStore      = (*Store)(nil)
	_ store.SubscriptionStore = (*Store)(nil)
	_ core.Stopper            = (*Store)(nil)
)

// Store is a SQLite-backed MessageStore and SubscriptionStore sharing a
// single database.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database described by cfg, applies
// pragmas and migrates the schema. Errors here are fatal at startup.
func Open(ctx context.Context, cfg Config, dataDir string, logger *slog.Logger) (*Store, error) {
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Path == "" {
		cfg.Path = filepath.Join(dataDir, defaultDBFile)
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	if cfg.walEnabled() {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("sqlite store opened",
		"path", cfg.Path,
		"wal", cfg.walEnabled(),
	)

	return &Store{
		db:     db,
		path:   cfg.Path,
		logger: logger,
		now:    time.Now,
	}, nil
}

// ModuleInfo implements core.Module.
func (s *Store) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "store.sqlite"}
}

// Stop implements core.Stopper.
func (s *Store) Stop(_ context.Context) error {
	s.logger.Info("sqlite store closing")
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Snapshot writes a consistent copy of the database to dest with
// VACUUM INTO. dest must not exist.
func (s *Store) Snapshot(ctx context.Context, dest string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("sqlite: snapshot to %s: %w", dest, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", v, err)
	}
	return t, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
