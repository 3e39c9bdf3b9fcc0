package store

import (
	"context"
	"database/sql"
	"fmt"
)

// runMigrations executes all database migrations in a transaction
func (s *Store) runMigrations(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = createChatMessagesTable(ctx, tx); err != nil {
		return fmt.Errorf("failed to create chat_messages table: %w", err)
	}

	if err = createSessionsTable(ctx, tx); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	if err = createAnalyticsEventsTable(ctx, tx); err != nil {
		return fmt.Errorf("failed to create analytics_events table: %w", err)
	}

	if err = createChunksTable(ctx, tx); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}

	if err = createUsersTable(ctx, tx); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	if err = createSessionTokensTable(ctx, tx); err != nil {
		return fmt.Errorf("failed to create session_tokens table: %w", err)
	}

	if err = createIndexes(ctx, tx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	return nil
}

func createChatMessagesTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT 'text',
			plant_name TEXT,
			confidence REAL,
			diagnosis TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func createSessionsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			last_message_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func createAnalyticsEventsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE IF NOT EXISTS analytics_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event TEXT NOT NULL,
			payload TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func createChunksTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			text TEXT NOT NULL,
			tags TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func createUsersTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_admin BOOLEAN DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_login TIMESTAMP
		)
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func createSessionTokensTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE IF NOT EXISTS session_tokens (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func createIndexes(ctx context.Context, tx *sql.Tx) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_event ON analytics_events(event)`,
		`CREATE INDEX IF NOT EXISTS idx_session_tokens_expires ON session_tokens(expires_at)`,
	}

	for _, idx := range indexes {
		if _, err := tx.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}
