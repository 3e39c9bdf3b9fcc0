package api

import (
	"context"
	"net/http"
	"time"

	"farmhand/internal/auth"
	"farmhand/internal/chat"
	"farmhand/internal/logging"
	"farmhand/internal/prefs"
	"farmhand/internal/voice"
)

// Server holds dependencies and provides HTTP handlers
type Server struct {
	orchestrator Orchestrator
	empathizer   Empathizer
	ingester     Ingester
	store        Store
	prefs        *prefs.Store
	auth         *auth.Authenticator
	newVoice     VoiceFactory
	wsHub        *WebSocketHub
	config       *ServerConfig
	logger       *logging.Logger
}

// Orchestrator interface for conversation operations
type Orchestrator interface {
	Submit(ctx context.Context, sessionID, message string) (chat.Turn, error)
	SubmitImage(ctx context.Context, sessionID string, image []byte) (chat.Turn, error)
	RequestWeather(ctx context.Context, sessionID, region string) (chat.Turn, error)
	History(sessionID string) []chat.Turn
	SetVoiceSession(sessionID string)
}

// Empathizer interface for the supportive-reply endpoint
type Empathizer interface {
	EmpathyReply(ctx context.Context, message string, p prefs.Preferences) string
}

// Ingester interface for knowledge-base ingestion. A nil Ingester
// disables the ingestion endpoints.
type Ingester interface {
	IngestText(ctx context.Context, source, text string, tags []string) error
	IngestURL(ctx context.Context, url string, tags []string) error
}

// Store interface for persistence-backed endpoints. A nil Store leaves
// those endpoints serving empty results.
type Store interface {
	ListSessions(ctx context.Context) ([]Session, error)
	GetSessionHistory(ctx context.Context, sessionID string) ([]ChatMessage, error)
	SaveAnalyticsEvent(ctx context.Context, event, payload string) error
	ListSources(ctx context.Context) ([]SourceSummary, error)
}

// VoiceFactory creates one voice session per websocket connection
type VoiceFactory func() *voice.Session

// Session is a chat session summary
type Session struct {
	ID            string    `json:"id"`
	LastMessageAt time.Time `json:"last_message_at"`
	MessageCount  int       `json:"message_count"`
}

// ChatMessage is a persisted conversation turn
type ChatMessage struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Kind       string    `json:"kind"`
	PlantName  string    `json:"plant_name,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Diagnosis  string    `json:"diagnosis,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SourceSummary describes one ingested knowledge source
type SourceSummary struct {
	Source     string    `json:"source"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// ServerConfig holds server behavior flags
type ServerConfig struct {
	AuthEnabled     bool
	ContinuousVoice bool
}

// NewServer creates a server with its dependencies. The hub must
// already be running; the server only publishes to it.
func NewServer(orchestrator Orchestrator, empathizer Empathizer, ingester Ingester, store Store,
	prefStore *prefs.Store, authenticator *auth.Authenticator, newVoice VoiceFactory,
	hub *WebSocketHub, config *ServerConfig, logger *logging.Logger) *Server {

	return &Server{
		orchestrator: orchestrator,
		empathizer:   empathizer,
		ingester:     ingester,
		store:        store,
		prefs:        prefStore,
		auth:         authenticator,
		newVoice:     newVoice,
		wsHub:        hub,
		config:       config,
		logger:       logger,
	}
}

// RegisterRoutes sets up all HTTP routes
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/weather", s.handleWeather)
	mux.HandleFunc("/api/plant", s.handlePlant)
	mux.HandleFunc("/api/empathy", s.handleEmpathy)
	mux.HandleFunc("/api/analytics", s.handleAnalytics)
	mux.HandleFunc("/api/preferences", s.handlePreferences)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionHistory)
	mux.HandleFunc("/api/knowledge", s.handleKnowledgeList)
	mux.HandleFunc("/api/knowledge/text", s.handleKnowledgeText)
	mux.HandleFunc("/api/knowledge/url", s.handleKnowledgeURL)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.handleLogout)
	mux.HandleFunc("/api/health", s.handleHealth)

	mux.HandleFunc("/ws", s.handleEvents)
	mux.HandleFunc("/ws/voice", s.handleVoiceSocket)
}

// Handler returns the routed handler wrapped in auth middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return auth.Middleware(s.auth, s.config.AuthEnabled)(mux)
}
