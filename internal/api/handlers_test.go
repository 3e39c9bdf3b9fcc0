package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"farmhand/internal/auth"
	"farmhand/internal/chat"
	"farmhand/internal/config"
	"farmhand/internal/logging"
	"farmhand/internal/plant"
	"farmhand/internal/prefs"
	"farmhand/internal/voice"
	"farmhand/internal/weather"
)

type mockOrchestrator struct {
	turns        map[string][]chat.Turn
	voiceSession string
}

func newMockOrchestrator() *mockOrchestrator {
	return &mockOrchestrator{turns: make(map[string][]chat.Turn)}
}

func (m *mockOrchestrator) Submit(ctx context.Context, sessionID, message string) (chat.Turn, error) {
	if strings.TrimSpace(message) == "" {
		return chat.Turn{}, chat.ErrEmptyMessage
	}
	turn := chat.Turn{ID: "t1", Author: "assistant", Text: "reply to " + message, Kind: chat.KindText}
	m.turns[sessionID] = append(m.turns[sessionID], turn)
	return turn, nil
}

func (m *mockOrchestrator) SubmitImage(ctx context.Context, sessionID string, image []byte) (chat.Turn, error) {
	if len(image) == 0 {
		return chat.Turn{}, chat.ErrEmptyImage
	}
	turn := chat.Turn{ID: "t2", Author: "assistant", Text: "Tomato", Kind: chat.KindPlant,
		Plant: &plant.Identification{Name: "Tomato", Confidence: 0.9, Health: plant.HealthyStatus}}
	m.turns[sessionID] = append(m.turns[sessionID], turn)
	return turn, nil
}

func (m *mockOrchestrator) RequestWeather(ctx context.Context, sessionID, region string) (chat.Turn, error) {
	if strings.TrimSpace(region) == "" {
		return chat.Turn{}, chat.ErrEmptyRegion
	}
	turn := chat.Turn{ID: "t3", Author: "assistant", Text: region, Kind: chat.KindWeather,
		Weather: &weather.Report{Location: region, TemperatureC: 27, Conditions: "Sunny"}}
	m.turns[sessionID] = append(m.turns[sessionID], turn)
	return turn, nil
}

func (m *mockOrchestrator) History(sessionID string) []chat.Turn {
	return m.turns[sessionID]
}

func (m *mockOrchestrator) SetVoiceSession(sessionID string) {
	m.voiceSession = sessionID
}

type mockEmpathizer struct{}

func (m *mockEmpathizer) EmpathyReply(ctx context.Context, message string, p prefs.Preferences) string {
	return "I understand farming can be tough, " + p.Name + "."
}

type mockIngester struct {
	texts []string
	urls  []string
	err   error
}

func (m *mockIngester) IngestText(ctx context.Context, source, text string, tags []string) error {
	if m.err != nil {
		return m.err
	}
	m.texts = append(m.texts, source)
	return nil
}

func (m *mockIngester) IngestURL(ctx context.Context, url string, tags []string) error {
	if m.err != nil {
		return m.err
	}
	m.urls = append(m.urls, url)
	return nil
}

type mockAPIStore struct {
	sessions []Session
	history  map[string][]ChatMessage
	events   []string
	sources  []SourceSummary
}

func (m *mockAPIStore) ListSessions(ctx context.Context) ([]Session, error) {
	return m.sessions, nil
}

func (m *mockAPIStore) GetSessionHistory(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	return m.history[sessionID], nil
}

func (m *mockAPIStore) SaveAnalyticsEvent(ctx context.Context, event, payload string) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockAPIStore) ListSources(ctx context.Context) ([]SourceSummary, error) {
	return m.sources, nil
}

// memAuthStore backs the authenticator in tests
type memAuthStore struct {
	users  map[string]*auth.User
	tokens map[string]*auth.SessionToken
}

func newMemAuthStore() *memAuthStore {
	return &memAuthStore{users: map[string]*auth.User{}, tokens: map[string]*auth.SessionToken{}}
}

func (m *memAuthStore) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	return m.users[username], nil
}

func (m *memAuthStore) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (int64, error) {
	id := int64(len(m.users) + 1)
	m.users[username] = &auth.User{ID: id, Username: username, PasswordHash: passwordHash, IsAdmin: isAdmin}
	return id, nil
}

func (m *memAuthStore) UpdateLastLogin(ctx context.Context, userID int64) error { return nil }

func (m *memAuthStore) CreateSessionToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	m.tokens[token] = &auth.SessionToken{Token: token, UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (m *memAuthStore) GetSessionToken(ctx context.Context, token string) (*auth.SessionToken, error) {
	st := m.tokens[token]
	if st == nil || time.Now().After(st.ExpiresAt) {
		return nil, nil
	}
	return st, nil
}

func (m *memAuthStore) DeleteSessionToken(ctx context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

type serverFixture struct {
	server       *Server
	orchestrator *mockOrchestrator
	ingester     *mockIngester
	store        *mockAPIStore
	authStore    *memAuthStore
}

func newTestServer(t *testing.T, cfg *ServerConfig, store Store) *serverFixture {
	t.Helper()
	logger := logging.NewLogger("api-test", logging.ERROR, io.Discard)

	prefStore, err := prefs.NewStore(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatalf("prefs store: %v", err)
	}

	orchestrator := newMockOrchestrator()
	ingester := &mockIngester{}
	authStore := newMemAuthStore()
	authenticator := auth.NewAuthenticator(authStore, 7, logger)

	newVoice := func() *voice.Session {
		return voice.NewSession(nil, voice.NewSpeaker(config.VoiceConfig{}, logger), false, logger)
	}

	hub := NewWebSocketHub()
	go hub.Run()

	srv := NewServer(orchestrator, &mockEmpathizer{}, ingester, store, prefStore, authenticator, newVoice, hub, cfg, logger)

	fixture := &serverFixture{
		server:       srv,
		orchestrator: orchestrator,
		ingester:     ingester,
		authStore:    authStore,
	}
	if s, ok := store.(*mockAPIStore); ok {
		fixture.store = s
	}
	return fixture
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHandleChat(t *testing.T) {
	fixture := newTestServer(t, &ServerConfig{}, nil)
	handler := fixture.server.Handler()

	t.Run("returns the assistant reply with a session id", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/chat", map[string]string{"message": "How do I water tomatoes?"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["response"] != "reply to How do I water tomatoes?" {
			t.Errorf("unexpected response: %v", body["response"])
		}
		if body["session_id"] == "" || body["session_id"] == nil {
			t.Error("expected generated session id")
		}
	})

	t.Run("missing message is a 400", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/chat", map[string]string{"message": "  "})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if msg, ok := body["error"].(string); !ok || msg == "" {
			t.Error("expected localized error message")
		}
	})

	t.Run("wrong method is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestHandleWeather(t *testing.T) {
	fixture := newTestServer(t, &ServerConfig{}, nil)
	handler := fixture.server.Handler()

	t.Run("returns the normalized report", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/weather", map[string]string{"region": "Pune"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		report, ok := body["weather"].(map[string]interface{})
		if !ok {
			t.Fatalf("expected weather object, got %v", body)
		}
		if report["location"] != "Pune" {
			t.Errorf("unexpected location: %v", report["location"])
		}
	})

	t.Run("missing region is a 400 when none is stored", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/weather", map[string]string{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("falls back to the preferred region", func(t *testing.T) {
		postJSON(t, handler, "/api/preferences", map[string]interface{}{
			"language": "en", "region": "Punjab",
		})
		rec := postJSON(t, handler, "/api/weather", map[string]string{})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		report := body["weather"].(map[string]interface{})
		if report["location"] != "Punjab" {
			t.Errorf("expected preferred region, got %v", report["location"])
		}
	})
}

func TestHandlePlant(t *testing.T) {
	fixture := newTestServer(t, &ServerConfig{}, nil)
	handler := fixture.server.Handler()

	buildImageRequest := func(t *testing.T, field string) *http.Request {
		t.Helper()
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile(field, "leaf.jpg")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		part.Write([]byte("jpeg-bytes"))
		writer.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/plant", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req
	}

	t.Run("identifies the uploaded image", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, buildImageRequest(t, "image"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		result, ok := body["plant"].(map[string]interface{})
		if !ok || result["name"] != "Tomato" {
			t.Errorf("unexpected identification: %v", body)
		}
	})

	t.Run("missing image field is a 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, buildImageRequest(t, "file"))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleEmpathy(t *testing.T) {
	fixture := newTestServer(t, &ServerConfig{}, nil)
	handler := fixture.server.Handler()

	rec := postJSON(t, handler, "/api/empathy", map[string]string{"message": "my crop failed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if !strings.Contains(body["response"].(string), "farming can be tough") {
		t.Errorf("unexpected reply: %v", body["response"])
	}
}

func TestHandleAnalytics(t *testing.T) {
	store := &mockAPIStore{}
	fixture := newTestServer(t, &ServerConfig{}, store)
	handler := fixture.server.Handler()

	t.Run("records the event and acknowledges", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/analytics", map[string]interface{}{
			"event": "plant_scan",
			"data":  map[string]string{"lang": "hi"},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if decodeBody(t, rec)["status"] != "ok" {
			t.Error("expected ok status")
		}
		if len(store.events) != 1 || store.events[0] != "plant_scan" {
			t.Errorf("expected recorded event, got %v", store.events)
		}
	})

	t.Run("missing event name is a 400", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/analytics", map[string]string{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("works without a store", func(t *testing.T) {
		noStore := newTestServer(t, &ServerConfig{}, nil)
		rec := postJSON(t, noStore.server.Handler(), "/api/analytics", map[string]string{"event": "x"})
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestHandlePreferences(t *testing.T) {
	fixture := newTestServer(t, &ServerConfig{}, nil)
	handler := fixture.server.Handler()

	t.Run("GET returns the defaults", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["language"] != "en" {
			t.Errorf("expected default language en, got %v", body["language"])
		}
	})

	t.Run("POST replaces and echoes the stored record", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/preferences", map[string]interface{}{
			"language": "hi", "region": "Maharashtra", "name": "Asha", "first_run": false,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["language"] != "hi" || body["region"] != "Maharashtra" {
			t.Errorf("preferences not persisted: %v", body)
		}
	})
}

func TestHandleSessions(t *testing.T) {
	t.Run("lists persisted sessions", func(t *testing.T) {
		store := &mockAPIStore{sessions: []Session{{ID: "s1", MessageCount: 4}}}
		fixture := newTestServer(t, &ServerConfig{}, store)
		req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		rec := httptest.NewRecorder()
		fixture.server.Handler().ServeHTTP(rec, req)

		var sessions []Session
		json.Unmarshal(rec.Body.Bytes(), &sessions)
		if len(sessions) != 1 || sessions[0].ID != "s1" {
			t.Errorf("unexpected sessions: %v", sessions)
		}
	})

	t.Run("no store means an empty list", func(t *testing.T) {
		fixture := newTestServer(t, &ServerConfig{}, nil)
		req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		rec := httptest.NewRecorder()
		fixture.server.Handler().ServeHTTP(rec, req)
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("expected empty array, got %q", rec.Body.String())
		}
	})
}

func TestHandleSessionHistory(t *testing.T) {
	t.Run("serves persisted history", func(t *testing.T) {
		store := &mockAPIStore{history: map[string][]ChatMessage{
			"s1": {{SessionID: "s1", Role: "user", Content: "hello", Kind: "text"}},
		}}
		fixture := newTestServer(t, &ServerConfig{}, store)
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/history", nil)
		rec := httptest.NewRecorder()
		fixture.server.Handler().ServeHTTP(rec, req)

		var messages []ChatMessage
		json.Unmarshal(rec.Body.Bytes(), &messages)
		if len(messages) != 1 || messages[0].Content != "hello" {
			t.Errorf("unexpected history: %v", messages)
		}
	})

	t.Run("falls back to in-memory turns without a store", func(t *testing.T) {
		fixture := newTestServer(t, &ServerConfig{}, nil)
		fixture.orchestrator.Submit(context.Background(), "s9", "hi")

		req := httptest.NewRequest(http.MethodGet, "/api/sessions/s9/history", nil)
		rec := httptest.NewRecorder()
		fixture.server.Handler().ServeHTTP(rec, req)

		var messages []ChatMessage
		json.Unmarshal(rec.Body.Bytes(), &messages)
		if len(messages) != 1 || messages[0].Role != "assistant" {
			t.Errorf("unexpected fallback history: %v", messages)
		}
	})

	t.Run("malformed path is a 404", func(t *testing.T) {
		fixture := newTestServer(t, &ServerConfig{}, nil)
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1", nil)
		rec := httptest.NewRecorder()
		fixture.server.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestHandleKnowledge(t *testing.T) {
	t.Run("text ingestion", func(t *testing.T) {
		fixture := newTestServer(t, &ServerConfig{}, nil)
		rec := postJSON(t, fixture.server.Handler(), "/api/knowledge/text", map[string]string{
			"source": "notes.md", "text": "rotate crops yearly",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(fixture.ingester.texts) != 1 || fixture.ingester.texts[0] != "notes.md" {
			t.Errorf("expected ingested source, got %v", fixture.ingester.texts)
		}
	})

	t.Run("empty text is a 400", func(t *testing.T) {
		fixture := newTestServer(t, &ServerConfig{}, nil)
		rec := postJSON(t, fixture.server.Handler(), "/api/knowledge/text", map[string]string{"text": " "})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("url ingestion", func(t *testing.T) {
		fixture := newTestServer(t, &ServerConfig{}, nil)
		rec := postJSON(t, fixture.server.Handler(), "/api/knowledge/url", map[string]string{
			"url": "https://example.com/guide",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(fixture.ingester.urls) != 1 {
			t.Errorf("expected ingested url, got %v", fixture.ingester.urls)
		}
	})

	t.Run("source listing", func(t *testing.T) {
		store := &mockAPIStore{sources: []SourceSummary{{Source: "guide.md", ChunkCount: 3}}}
		fixture := newTestServer(t, &ServerConfig{}, store)
		req := httptest.NewRequest(http.MethodGet, "/api/knowledge", nil)
		rec := httptest.NewRecorder()
		fixture.server.Handler().ServeHTTP(rec, req)

		var sources []SourceSummary
		json.Unmarshal(rec.Body.Bytes(), &sources)
		if len(sources) != 1 || sources[0].ChunkCount != 3 {
			t.Errorf("unexpected sources: %v", sources)
		}
	})
}

func TestAuthFlow(t *testing.T) {
	fixture := newTestServer(t, &ServerConfig{AuthEnabled: true}, nil)
	handler := fixture.server.Handler()

	ctx := context.Background()
	authenticator := auth.NewAuthenticator(fixture.authStore, 7, logging.NewLogger("seed", logging.ERROR, io.Discard))
	if err := authenticator.SeedAdmin(ctx, "admin", "changeme"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	t.Run("guarded endpoint rejects anonymous requests", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/chat", map[string]string{"message": "hi"})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("login issues a usable token", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/login", map[string]string{"username": "admin", "password": "changeme"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		token := decodeBody(t, rec)["token"].(string)

		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		authed := httptest.NewRecorder()
		handler.ServeHTTP(authed, req)
		if authed.Code != http.StatusOK {
			t.Errorf("expected 200 with token, got %d", authed.Code)
		}
	})

	t.Run("bad credentials are a 401", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/login", map[string]string{"username": "admin", "password": "wrong"})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("health stays public", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("login is a 400 when auth is disabled", func(t *testing.T) {
		open := newTestServer(t, &ServerConfig{}, nil)
		rec := postJSON(t, open.server.Handler(), "/api/login", map[string]string{"username": "a", "password": "b"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleHealth(t *testing.T) {
	fixture := newTestServer(t, &ServerConfig{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	fixture.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["status"] != "ok" {
		t.Error("expected ok status")
	}
}
