// Package stats keeps per-chat usage counters in SQLite. Only aggregate
// numbers are stored; message content never touches disk and the pipeline
// itself stays stateless.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store records how much each chat uses the bot.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_stats (
		channel     TEXT NOT NULL,
		chat_id     TEXT NOT NULL,
		messages    INTEGER NOT NULL DEFAULT 0,
		expressions INTEGER NOT NULL DEFAULT 0,
		errors      INTEGER NOT NULL DEFAULT 0,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (channel, chat_id)
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Record bumps the counters for one processed message: expressions is the
// number of solved expressions replied to, errs the number of user-visible
// error replies (division by zero).
func (s *Store) Record(ctx context.Context, channel, chatID string, expressions, errs int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_stats (channel, chat_id, messages, expressions, errors)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(channel, chat_id) DO UPDATE SET
			messages    = messages + 1,
			expressions = expressions + excluded.expressions,
			errors      = errors + excluded.errors,
			updated_at  = CURRENT_TIMESTAMP`,
		channel, chatID, expressions, errs)
	if err != nil {
		return fmt.Errorf("record stats: %w", err)
	}
	return nil
}

// Totals are the aggregate usage numbers across all chats.
type Totals struct {
	Chats       int64
	Messages    int64
	Expressions int64
	Errors      int64
}

func (s *Store) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(messages), 0),
		       COALESCE(SUM(expressions), 0),
		       COALESCE(SUM(errors), 0)
		FROM chat_stats`).
		Scan(&t.Chats, &t.Messages, &t.Expressions, &t.Errors)
	if err != nil {
		return Totals{}, fmt.Errorf("stats totals: %w", err)
	}
	return t, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
