package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

// Store provides database operations for FarmHand
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store instance and initializes the database
func NewStore(path string) (*Store, error) {
	// WAL mode for concurrent access, busy timeout for write contention
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}

	if err := store.runMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveChatMessage persists a conversation turn and bumps the session's
// last-message timestamp in one transaction.
func (s *Store) SaveChatMessage(ctx context.Context, msg ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO chat_messages (session_id, role, content, kind, plant_name, confidence, diagnosis) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		msg.SessionID, msg.Role, msg.Content, msg.Kind,
		nullString(msg.PlantName), msg.Confidence, nullString(msg.Diagnosis))
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	sessionQuery := `
		INSERT INTO sessions (id, last_message_at)
		VALUES (?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET last_message_at = CURRENT_TIMESTAMP
	`
	if _, err = tx.ExecContext(ctx, sessionQuery, msg.SessionID); err != nil {
		return fmt.Errorf("failed to update session metadata: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSessionHistory retrieves all messages for a session ordered by creation time
func (s *Store) GetSessionHistory(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	query := `
		SELECT id, session_id, role, content, kind,
			COALESCE(plant_name, ''), COALESCE(confidence, 0), COALESCE(diagnosis, ''), created_at
		FROM chat_messages WHERE session_id = ? ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session history: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		var createdAtStr string
		err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Kind,
			&msg.PlantName, &msg.Confidence, &msg.Diagnosis, &createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if createdAtStr != "" {
			msg.CreatedAt, _ = time.Parse(timeLayout, createdAtStr)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// ListSessions returns all sessions, most recently active first
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	query := `
		SELECT
			session_id,
			MAX(created_at) as last_message_at,
			COUNT(*) as message_count
		FROM chat_messages
		GROUP BY session_id
		ORDER BY last_message_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		var lastMessageAtStr string
		if err := rows.Scan(&session.ID, &lastMessageAtStr, &session.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if lastMessageAtStr != "" {
			session.LastMessageAt, _ = time.Parse(timeLayout, lastMessageAtStr)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// SaveAnalyticsEvent records a usage event
func (s *Store) SaveAnalyticsEvent(ctx context.Context, event, payload string) error {
	query := `INSERT INTO analytics_events (event, payload) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, event, payload); err != nil {
		return fmt.Errorf("failed to save analytics event: %w", err)
	}
	return nil
}

// GetAnalyticsEvents returns the most recent events, newest first
func (s *Store) GetAnalyticsEvents(ctx context.Context, limit int) ([]AnalyticsEvent, error) {
	query := `SELECT id, event, COALESCE(payload, ''), created_at FROM analytics_events ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics events: %w", err)
	}
	defer rows.Close()

	var events []AnalyticsEvent
	for rows.Next() {
		var ev AnalyticsEvent
		var createdAtStr string
		if err := rows.Scan(&ev.ID, &ev.Event, &ev.Payload, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan analytics event: %w", err)
		}
		if createdAtStr != "" {
			ev.CreatedAt, _ = time.Parse(timeLayout, createdAtStr)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analytics events: %w", err)
	}

	return events, nil
}

// SaveChunk saves a knowledge chunk to the database
func (s *Store) SaveChunk(ctx context.Context, source, text string, tags []string) error {
	var tagsStr string
	if len(tags) > 0 {
		tagsStr = strings.Join(tags, ",")
	}

	query := `INSERT INTO chunks (source, text, tags) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, source, text, tagsStr); err != nil {
		return fmt.Errorf("failed to save chunk: %w", err)
	}
	return nil
}

// DeleteChunksBySource removes all chunks stored under a source
func (s *Store) DeleteChunksBySource(ctx context.Context, source string) error {
	query := `DELETE FROM chunks WHERE source = ?`
	if _, err := s.db.ExecContext(ctx, query, source); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// ListChunks returns all stored knowledge chunks
func (s *Store) ListChunks(ctx context.Context) ([]Chunk, error) {
	query := `SELECT id, source, text, COALESCE(tags, ''), created_at FROM chunks`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var tagsStr string
		var createdAtStr string
		if err := rows.Scan(&c.ID, &c.Source, &c.Text, &tagsStr, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if tagsStr != "" {
			c.Tags = strings.Split(tagsStr, ",")
		}
		if createdAtStr != "" {
			c.CreatedAt, _ = time.Parse(timeLayout, createdAtStr)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}

	return chunks, nil
}

// ListSources summarizes the ingested knowledge sources
func (s *Store) ListSources(ctx context.Context) ([]SourceSummary, error) {
	query := `
		SELECT source, COUNT(*) as chunk_count, MIN(created_at) as created_at
		FROM chunks
		GROUP BY source
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []SourceSummary
	for rows.Next() {
		var src SourceSummary
		var createdAtStr string
		if err := rows.Scan(&src.Source, &src.ChunkCount, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		if createdAtStr != "" {
			src.CreatedAt, _ = time.Parse(timeLayout, createdAtStr)
		}
		sources = append(sources, src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sources: %w", err)
	}

	return sources, nil
}

// CreateUser inserts a user with an already-hashed password
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (int64, error) {
	query := `INSERT INTO users (username, password_hash, is_admin) VALUES (?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash, isAdmin)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get user id: %w", err)
	}
	return id, nil
}

// GetUserByUsername returns the user or nil when no such user exists
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT id, username, password_hash, is_admin FROM users WHERE username = ?`

	var u User
	err := s.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// UpdateLastLogin stamps the user's last successful login
func (s *Store) UpdateLastLogin(ctx context.Context, userID int64) error {
	query := `UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// CreateSessionToken stores an authentication token
func (s *Store) CreateSessionToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	query := `INSERT INTO session_tokens (token, user_id, expires_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, token, userID, expiresAt); err != nil {
		return fmt.Errorf("failed to create session token: %w", err)
	}
	return nil
}

// GetSessionToken retrieves a session token.
// Returns nil if the token doesn't exist or has expired.
func (s *Store) GetSessionToken(ctx context.Context, token string) (*SessionToken, error) {
	query := `SELECT token, user_id, created_at, expires_at FROM session_tokens WHERE token = ?`

	var st SessionToken
	err := s.db.QueryRowContext(ctx, query, token).Scan(&st.Token, &st.UserID, &st.CreatedAt, &st.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session token: %w", err)
	}

	if time.Now().After(st.ExpiresAt) {
		return nil, nil
	}
	return &st, nil
}

// DeleteSessionToken removes a session token, used for logout
func (s *Store) DeleteSessionToken(ctx context.Context, token string) error {
	query := `DELETE FROM session_tokens WHERE token = ?`
	if _, err := s.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}

// CleanupExpiredTokens removes expired session tokens
func (s *Store) CleanupExpiredTokens(ctx context.Context) error {
	query := `DELETE FROM session_tokens WHERE expires_at < ?`
	if _, err := s.db.ExecContext(ctx, query, time.Now()); err != nil {
		return fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
