package store

import "time"

// ChatMessage is a persisted conversation turn. Plant fields are only
// set for identification results, Confidence is NaN-free in [0, 1].
type ChatMessage struct {
	ID         int64
	SessionID  string
	Role       string // "user" or "assistant"
	Content    string
	Kind       string // "text", "image", "weather" or "plant"
	PlantName  string
	Confidence float64
	Diagnosis  string
	CreatedAt  time.Time
}

// Session is a chat session with summary metadata
type Session struct {
	ID            string
	LastMessageAt time.Time
	MessageCount  int
}

// AnalyticsEvent is a recorded usage event
type AnalyticsEvent struct {
	ID        int64
	Event     string
	Payload   string
	CreatedAt time.Time
}

// Chunk is a stored knowledge-base fragment
type Chunk struct {
	ID        int64
	Source    string
	Text      string
	Tags      []string
	CreatedAt time.Time
}

// SourceSummary describes one ingested knowledge source
type SourceSummary struct {
	Source     string
	ChunkCount int
	CreatedAt  time.Time
}

// User is an account that may log in when auth is enabled
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	LastLogin    time.Time
}

// SessionToken is an authentication token issued at login
type SessionToken struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}
