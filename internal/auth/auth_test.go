package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farmhand/internal/logging"
)

// mockStore implements the Store interface for testing
type mockStore struct {
	users  map[string]*User
	tokens map[string]*SessionToken
	nextID int64
}

func newMockStore() *mockStore {
	return &mockStore{
		users:  make(map[string]*User),
		tokens: make(map[string]*SessionToken),
		nextID: 1,
	}
}

func (m *mockStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return m.users[username], nil
}

func (m *mockStore) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (int64, error) {
	if m.users[username] != nil {
		return 0, errors.New("duplicate username")
	}
	id := m.nextID
	m.nextID++
	m.users[username] = &User{ID: id, Username: username, PasswordHash: passwordHash, IsAdmin: isAdmin}
	return id, nil
}

func (m *mockStore) UpdateLastLogin(ctx context.Context, userID int64) error {
	return nil
}

func (m *mockStore) CreateSessionToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	m.tokens[token] = &SessionToken{Token: token, UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (m *mockStore) GetSessionToken(ctx context.Context, token string) (*SessionToken, error) {
	st := m.tokens[token]
	if st == nil || time.Now().After(st.ExpiresAt) {
		return nil, nil
	}
	return st, nil
}

func (m *mockStore) DeleteSessionToken(ctx context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

func authTestLogger() *logging.Logger {
	return logging.NewLogger("auth-test", logging.ERROR, io.Discard)
}

func TestPasswordHashing(t *testing.T) {
	password := "testPassword123"

	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if hash == password {
		t.Error("hash should not equal plaintext password")
	}
	if !checkPasswordHash(password, hash) {
		t.Error("correct password should validate")
	}
	if checkPasswordHash("wrongPassword", hash) {
		t.Error("incorrect password should not validate")
	}
}

func TestTokenGeneration(t *testing.T) {
	token1, err := generateSecureToken(32)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	token2, err := generateSecureToken(32)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if token1 == token2 {
		t.Error("generated tokens should be unique")
	}
	if token1 == "" || token2 == "" {
		t.Error("generated tokens should not be empty")
	}
}

func TestAuthenticator_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials return a stored token", func(t *testing.T) {
		store := newMockStore()
		a := NewAuthenticator(store, 7, authTestLogger())

		hash, _ := hashPassword("secret")
		store.users["farmer"] = &User{ID: 1, Username: "farmer", PasswordHash: hash}

		token, err := a.Login(ctx, "farmer", "secret")
		if err != nil {
			t.Fatalf("login should succeed: %v", err)
		}
		if token == "" {
			t.Error("token should not be empty")
		}
		if store.tokens[token] == nil {
			t.Error("token should be stored")
		}
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		store := newMockStore()
		a := NewAuthenticator(store, 7, authTestLogger())

		hash, _ := hashPassword("secret")
		store.users["farmer"] = &User{ID: 1, Username: "farmer", PasswordHash: hash}

		if _, err := a.Login(ctx, "farmer", "nope"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown user is rejected with the same error", func(t *testing.T) {
		a := NewAuthenticator(newMockStore(), 7, authTestLogger())
		if _, err := a.Login(ctx, "ghost", "secret"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthenticator_Tokens(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	a := NewAuthenticator(store, 7, authTestLogger())

	hash, _ := hashPassword("secret")
	store.users["farmer"] = &User{ID: 42, Username: "farmer", PasswordHash: hash}
	token, _ := a.Login(ctx, "farmer", "secret")

	t.Run("valid token resolves to the user", func(t *testing.T) {
		userID, err := a.ValidateToken(ctx, token)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if userID != 42 {
			t.Errorf("expected user 42, got %d", userID)
		}
	})

	t.Run("logout invalidates the token", func(t *testing.T) {
		if err := a.Logout(ctx, token); err != nil {
			t.Fatalf("logout: %v", err)
		}
		if _, err := a.ValidateToken(ctx, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired token is invalid", func(t *testing.T) {
		store.tokens["old"] = &SessionToken{Token: "old", UserID: 42, ExpiresAt: time.Now().Add(-time.Hour)}
		if _, err := a.ValidateToken(ctx, "old"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates admin when missing", func(t *testing.T) {
		store := newMockStore()
		a := NewAuthenticator(store, 7, authTestLogger())

		if err := a.SeedAdmin(ctx, "admin", "changeme"); err != nil {
			t.Fatalf("seed: %v", err)
		}
		u := store.users["admin"]
		if u == nil || !u.IsAdmin {
			t.Fatalf("expected admin user, got %+v", u)
		}
		if !checkPasswordHash("changeme", u.PasswordHash) {
			t.Error("stored hash should match the seed password")
		}
	})

	t.Run("existing admin is left alone", func(t *testing.T) {
		store := newMockStore()
		a := NewAuthenticator(store, 7, authTestLogger())

		a.SeedAdmin(ctx, "admin", "first")
		original := store.users["admin"].PasswordHash
		if err := a.SeedAdmin(ctx, "admin", "second"); err != nil {
			t.Fatalf("second seed: %v", err)
		}
		if store.users["admin"].PasswordHash != original {
			t.Error("seed should not overwrite an existing account")
		}
	})
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	a := NewAuthenticator(store, 7, authTestLogger())

	hash, _ := hashPassword("secret")
	store.users["farmer"] = &User{ID: 7, Username: "farmer", PasswordHash: hash}
	token, _ := a.Login(ctx, "farmer", "secret")

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("disabled auth passes everything through", func(t *testing.T) {
		handler := Middleware(a, false)(okHandler)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		handler := Middleware(a, true)(okHandler)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("bearer token is accepted and user id is injected", func(t *testing.T) {
		var gotID int64
		handler := Middleware(a, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID, _ = GetUserID(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotID != 7 {
			t.Errorf("expected user 7 in context, got %d", gotID)
		}
	})

	t.Run("cookie token is accepted", func(t *testing.T) {
		handler := Middleware(a, true)(okHandler)
		req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("login endpoint stays public", func(t *testing.T) {
		handler := Middleware(a, true)(okHandler)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}
