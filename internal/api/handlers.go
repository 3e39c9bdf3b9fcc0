package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"farmhand/internal/auth"
	"farmhand/internal/chat"
	"farmhand/internal/i18n"
	"farmhand/internal/prefs"
)

const maxImageUpload = 10 << 20 // 10MB

// handleChat processes a text submission and returns the assistant reply
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, s.localized("message_required"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	turn, err := s.orchestrator.Submit(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			s.writeError(w, http.StatusBadRequest, s.localized("message_required"))
			return
		}
		s.logger.WithContext("error", err.Error()).Error("chat submission failed")
		s.writeError(w, http.StatusInternalServerError, "Chat failed")
		return
	}

	s.wsHub.Broadcast("chat", turn.Text)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"response":   turn.Text,
		"session_id": req.SessionID,
		"turn_id":    turn.ID,
	})
}

// handleWeather returns the normalized report for a region
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Region    string `json:"region"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if strings.TrimSpace(req.Region) == "" {
		req.Region = s.prefs.Get().Region
	}
	if strings.TrimSpace(req.Region) == "" {
		s.writeError(w, http.StatusBadRequest, s.localized("region_required"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	turn, err := s.orchestrator.RequestWeather(r.Context(), req.SessionID, req.Region)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyRegion) {
			s.writeError(w, http.StatusBadRequest, s.localized("region_required"))
			return
		}
		s.logger.WithContext("error", err.Error()).Error("weather request failed")
		s.writeError(w, http.StatusInternalServerError, "Weather lookup failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"weather":    turn.Weather,
		"session_id": req.SessionID,
	})
}

// handlePlant identifies the uploaded plant image
func (s *Server) handlePlant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		s.writeError(w, http.StatusBadRequest, s.localized("image_required"))
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, s.localized("image_required"))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageUpload))
	if err != nil || len(image) == 0 {
		s.writeError(w, http.StatusBadRequest, s.localized("image_required"))
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	turn, err := s.orchestrator.SubmitImage(r.Context(), sessionID, image)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyImage) {
			s.writeError(w, http.StatusBadRequest, s.localized("image_required"))
			return
		}
		s.logger.WithContext("error", err.Error()).Error("plant identification failed")
		s.writeError(w, http.StatusInternalServerError, "Identification failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"plant":      turn.Plant,
		"session_id": sessionID,
	})
}

// handleEmpathy returns a supportive reply for a frustrated farmer
func (s *Server) handleEmpathy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, s.localized("message_required"))
		return
	}

	reply := s.empathizer.EmpathyReply(r.Context(), req.Message, s.prefs.Get())
	s.writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

// handleAnalytics records a usage event
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Event == "" {
		s.writeError(w, http.StatusBadRequest, "Event is required")
		return
	}

	if s.store != nil {
		if err := s.store.SaveAnalyticsEvent(r.Context(), req.Event, string(req.Data)); err != nil {
			s.logger.WithContext("error", err.Error()).Warn("analytics event not saved")
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePreferences reads or replaces the stored preferences
func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.prefs.Get())

	case http.MethodPost:
		var p prefs.Preferences
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid request")
			return
		}
		if err := s.prefs.Set(p); err != nil {
			s.logger.WithContext("error", err.Error()).Error("preferences not saved")
			s.writeError(w, http.StatusInternalServerError, "Failed to save preferences")
			return
		}
		s.writeJSON(w, http.StatusOK, s.prefs.Get())

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSessions lists persisted chat sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.store == nil {
		s.writeJSON(w, http.StatusOK, []Session{})
		return
	}

	sessions, err := s.store.ListSessions(r.Context())
	if err != nil {
		s.logger.WithContext("error", err.Error()).Error("listing sessions failed")
		s.writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []Session{}
	}
	s.writeJSON(w, http.StatusOK, sessions)
}

// handleSessionHistory serves /api/sessions/{id}/history
func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	sessionID := strings.TrimSuffix(path, "/history")
	if sessionID == "" || sessionID == path {
		http.NotFound(w, r)
		return
	}

	if s.store == nil {
		// Without persistence, serve the in-memory conversation.
		turns := s.orchestrator.History(sessionID)
		messages := make([]ChatMessage, 0, len(turns))
		for _, turn := range turns {
			messages = append(messages, turnToMessage(sessionID, turn))
		}
		s.writeJSON(w, http.StatusOK, messages)
		return
	}

	messages, err := s.store.GetSessionHistory(r.Context(), sessionID)
	if err != nil {
		s.logger.WithContext("error", err.Error()).Error("loading session history failed")
		s.writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	if messages == nil {
		messages = []ChatMessage{}
	}
	s.writeJSON(w, http.StatusOK, messages)
}

// handleKnowledgeList summarizes the ingested knowledge sources
func (s *Server) handleKnowledgeList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.store == nil {
		s.writeJSON(w, http.StatusOK, []SourceSummary{})
		return
	}

	sources, err := s.store.ListSources(r.Context())
	if err != nil {
		s.logger.WithContext("error", err.Error()).Error("listing sources failed")
		s.writeError(w, http.StatusInternalServerError, "Failed to list sources")
		return
	}
	if sources == nil {
		sources = []SourceSummary{}
	}
	s.writeJSON(w, http.StatusOK, sources)
}

// handleKnowledgeText ingests pasted guide text
func (s *Server) handleKnowledgeText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Source string `json:"source"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "Text is required")
		return
	}
	if req.Source == "" {
		req.Source = "manual-" + uuid.New().String()[:8]
	}

	if s.ingester == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Knowledge base is not available")
		return
	}
	if err := s.ingester.IngestText(r.Context(), req.Source, req.Text, []string{"manual"}); err != nil {
		s.logger.WithContext("error", err.Error()).Error("text ingestion failed")
		s.writeError(w, http.StatusInternalServerError, "Ingestion failed")
		return
	}

	s.wsHub.Broadcast("knowledge", req.Source)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "source": req.Source})
}

// handleKnowledgeURL ingests a guide page by URL
func (s *Server) handleKnowledgeURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	if s.ingester == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Knowledge base is not available")
		return
	}
	if err := s.ingester.IngestURL(r.Context(), req.URL, []string{"url"}); err != nil {
		s.logger.WithContext("error", err.Error()).Error("URL ingestion failed")
		s.writeError(w, http.StatusBadGateway, "Ingestion failed")
		return
	}

	s.wsHub.Broadcast("knowledge", req.URL)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "source": req.URL})
}

// handleLogin authenticates and issues a session cookie
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.config.AuthEnabled {
		s.writeError(w, http.StatusBadRequest, "Authentication is disabled")
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		s.logger.WithContext("error", err.Error()).Error("login failed")
		s.writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleLogout invalidates the current session token
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if cookie, err := r.Cookie("session_token"); err == nil {
		s.auth.Logout(r.Context(), cookie.Value)
	} else if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		s.auth.Logout(r.Context(), strings.TrimPrefix(header, "Bearer "))
	}

	http.SetCookie(w, &http.Cookie{
		Name:    "session_token",
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
	})
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealth reports service liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) localized(key string) string {
	return i18n.Translate(s.prefs.Get().Language, key)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithContext("error", err.Error()).Error("response encoding failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func turnToMessage(sessionID string, turn chat.Turn) ChatMessage {
	msg := ChatMessage{
		SessionID: sessionID,
		Role:      turn.Author,
		Content:   turn.Text,
		Kind:      turn.Kind,
		CreatedAt: turn.Timestamp,
	}
	if turn.Plant != nil {
		msg.PlantName = turn.Plant.Name
		msg.Confidence = turn.Plant.Confidence
		msg.Diagnosis = turn.Plant.Health
	}
	return msg
}
