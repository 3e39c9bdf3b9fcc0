package main

import (
	"context"
	"strings"
	"time"

	"farmhand/internal/api"
	"farmhand/internal/auth"
	"farmhand/internal/chat"
	"farmhand/internal/knowledge"
	"farmhand/internal/logging"
	"farmhand/internal/store"
)

// recorderAdapter adapts store.Store to chat.Recorder. Failures are
// logged and never surface into the conversation.
type recorderAdapter struct {
	store  *store.Store
	logger *logging.Logger
}

func (ra *recorderAdapter) Record(ctx context.Context, sessionID string, turn chat.Turn) {
	msg := store.ChatMessage{
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
	if err := ra.store.SaveChatMessage(ctx, msg); err != nil {
		ra.logger.WithContext("error", err.Error()).Warn("turn not persisted")
	}
}

// searchStoreAdapter adapts store.Store to knowledge.SearchStore
type searchStoreAdapter struct {
	store *store.Store
}

func (sa *searchStoreAdapter) ListChunks(ctx context.Context) ([]knowledge.Chunk, error) {
	storeChunks, err := sa.store.ListChunks(ctx)
	if err != nil {
		return nil, err
	}

	chunks := make([]knowledge.Chunk, len(storeChunks))
	for i, sc := range storeChunks {
		chunks[i] = knowledge.Chunk{
			Source: sc.Source,
			Text:   sc.Text,
		}
	}
	return chunks, nil
}

// contextAdapter adapts knowledge.Searcher to chat.ContextProvider.
// Search failures degrade to an empty context.
type contextAdapter struct {
	searcher *knowledge.Searcher
}

func (ca *contextAdapter) Context(ctx context.Context, query string) string {
	chunks, err := ca.searcher.Search(ctx, query, 3)
	if err != nil || len(chunks) == 0 {
		return ""
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}

// authStoreAdapter adapts store.Store to auth.Store
type authStoreAdapter struct {
	store *store.Store
}

func (aa *authStoreAdapter) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	u, err := aa.store.GetUserByUsername(ctx, username)
	if err != nil || u == nil {
		return nil, err
	}
	return &auth.User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		IsAdmin:      u.IsAdmin,
	}, nil
}

func (aa *authStoreAdapter) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (int64, error) {
	return aa.store.CreateUser(ctx, username, passwordHash, isAdmin)
}

func (aa *authStoreAdapter) UpdateLastLogin(ctx context.Context, userID int64) error {
	return aa.store.UpdateLastLogin(ctx, userID)
}

func (aa *authStoreAdapter) CreateSessionToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	return aa.store.CreateSessionToken(ctx, token, userID, expiresAt)
}

func (aa *authStoreAdapter) GetSessionToken(ctx context.Context, token string) (*auth.SessionToken, error) {
	st, err := aa.store.GetSessionToken(ctx, token)
	if err != nil || st == nil {
		return nil, err
	}
	return &auth.SessionToken{
		Token:     st.Token,
		UserID:    st.UserID,
		ExpiresAt: st.ExpiresAt,
	}, nil
}

func (aa *authStoreAdapter) DeleteSessionToken(ctx context.Context, token string) error {
	return aa.store.DeleteSessionToken(ctx, token)
}

// apiStoreAdapter adapts store.Store to api.Store
type apiStoreAdapter struct {
	store *store.Store
}

func (aa *apiStoreAdapter) ListSessions(ctx context.Context) ([]api.Session, error) {
	storeSessions, err := aa.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	sessions := make([]api.Session, len(storeSessions))
	for i, ss := range storeSessions {
		sessions[i] = api.Session{
			ID:            ss.ID,
			LastMessageAt: ss.LastMessageAt,
			MessageCount:  ss.MessageCount,
		}
	}
	return sessions, nil
}

func (aa *apiStoreAdapter) GetSessionHistory(ctx context.Context, sessionID string) ([]api.ChatMessage, error) {
	storeMessages, err := aa.store.GetSessionHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages := make([]api.ChatMessage, len(storeMessages))
	for i, sm := range storeMessages {
		messages[i] = api.ChatMessage{
			ID:         sm.ID,
			SessionID:  sm.SessionID,
			Role:       sm.Role,
			Content:    sm.Content,
			Kind:       sm.Kind,
			PlantName:  sm.PlantName,
			Confidence: sm.Confidence,
			Diagnosis:  sm.Diagnosis,
			CreatedAt:  sm.CreatedAt,
		}
	}
	return messages, nil
}

func (aa *apiStoreAdapter) SaveAnalyticsEvent(ctx context.Context, event, payload string) error {
	return aa.store.SaveAnalyticsEvent(ctx, event, payload)
}

func (aa *apiStoreAdapter) ListSources(ctx context.Context) ([]api.SourceSummary, error) {
	storeSources, err := aa.store.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	sources := make([]api.SourceSummary, len(storeSources))
	for i, ss := range storeSources {
		sources[i] = api.SourceSummary{
			Source:     ss.Source,
			ChunkCount: ss.ChunkCount,
			CreatedAt:  ss.CreatedAt,
		}
	}
	return sources, nil
}
