package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophnotes/internal/client/api"
	"github.com/iudanet/gophnotes/internal/client/notify"
	"github.com/iudanet/gophnotes/internal/client/storage"
	"github.com/iudanet/gophnotes/internal/client/storage/memory"
	"github.com/iudanet/gophnotes/internal/models"
	pkgapi "github.com/iudanet/gophnotes/pkg/api"
)

// mockSessionStorage implements storage.SessionStorage with injectable errors
type mockSessionStorage struct {
	data      *storage.SessionData
	saveErr   error
	getErr    error
	deleteErr error
}

func (m *mockSessionStorage) SaveSession(ctx context.Context, session *storage.SessionData) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	data := *session
	m.data = &data
	return nil
}

func (m *mockSessionStorage) GetSession(ctx context.Context) (*storage.SessionData, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.data == nil {
		return nil, storage.ErrSessionNotFound
	}
	data := *m.data
	return &data, nil
}

func (m *mockSessionStorage) DeleteSession(ctx context.Context) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if m.data == nil {
		return storage.ErrSessionNotFound
	}
	m.data = nil
	return nil
}

// fakeAuthServer эмулирует /login, /register и /protected
type fakeAuthServer struct {
	*httptest.Server
	token         atomic.Pointer[string]
	identityCode  atomic.Int32
	calls         atomic.Int32
	identityCalls atomic.Int32
}

func newFakeAuthServer(t *testing.T, token string) *fakeAuthServer {
	t.Helper()

	f := &fakeAuthServer{}
	f.setToken(token)
	f.identityCode.Store(http.StatusOK)
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/login":
			var req pkgapi.LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Password != "Secret123" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Message: "Invalid credentials"})
				return
			}
			_ = json.NewEncoder(w).Encode(pkgapi.LoginResponse{AccessToken: *f.token.Load(), Username: req.Username})
		case "/register":
			var req pkgapi.RegisterRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Username == "taken" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Message: "User already exists"})
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(pkgapi.MessageResponse{Message: "User registered successfully. Please log in."})
		case "/protected":
			f.identityCalls.Add(1)
			if r.Header.Get("Authorization") != "Bearer "+*f.token.Load() {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Msg: "Token has expired"})
				return
			}
			if code := int(f.identityCode.Load()); code != http.StatusOK {
				w.WriteHeader(code)
				_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Msg: "Token has expired"})
				return
			}
			_ = json.NewEncoder(w).Encode(pkgapi.IdentityResponse{Username: "al"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.Close)

	return f
}

// setToken задает токен, который сервер выдает при входе и принимает
func (f *fakeAuthServer) setToken(token string) {
	f.token.Store(&token)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "al",
		"exp": exp.Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

func newTestStore(t *testing.T, server *fakeAuthServer, sessions storage.SessionStorage) (*Store, *notify.Recorder) {
	t.Helper()
	rec := notify.NewRecorder()
	return NewStore(api.NewClient(server.URL), sessions, nil, WithNotifier(rec)), rec
}

func TestStore_Login(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	server := newFakeAuthServer(t, signedToken(t, exp))
	sessions := memory.New()
	store, rec := newTestStore(t, server, sessions)

	var states []models.SessionState
	store.Subscribe(func(s models.SessionState) { states = append(states, s) })

	assert.Equal(t, models.Anonymous, store.State())

	cred, err := store.Login(context.Background(), "al", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, *server.token.Load(), cred.Token)
	assert.Equal(t, "al", cred.Username)

	assert.Equal(t, models.Authenticated, store.State())
	assert.Equal(t, []models.SessionState{models.Authenticated}, states)

	current, ok := store.Credential()
	require.True(t, ok)
	assert.Equal(t, *cred, current)

	expiresAt, ok := store.ExpiresAt()
	require.True(t, ok)
	assert.True(t, exp.Equal(expiresAt))

	saved, err := sessions.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, *server.token.Load(), saved.Token)
	assert.Equal(t, exp.Unix(), saved.ExpiresAt)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.SubjectLogin, last.Subject)
	assert.Equal(t, "Welcome, al!", last.Message)
	assert.False(t, last.Failed())
}

func TestStore_Login_Errors(t *testing.T) {
	tests := []struct {
		name        string
		username    string
		password    string
		wantErr     error
		wantMessage string
		wantCalls   int32
	}{
		{
			name:        "empty username",
			username:    "",
			password:    "Secret123",
			wantErr:     models.ErrValidation,
			wantMessage: "username cannot be empty",
			wantCalls:   0,
		},
		{
			name:        "empty password",
			username:    "al",
			password:    "",
			wantErr:     models.ErrValidation,
			wantMessage: "password cannot be empty",
			wantCalls:   0,
		},
		{
			name:        "wrong password",
			username:    "al",
			password:    "wrong",
			wantMessage: "Invalid credentials",
			wantCalls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newFakeAuthServer(t, "token-1")
			sessions := memory.New()
			store, rec := newTestStore(t, server, sessions)

			cred, err := store.Login(context.Background(), tt.username, tt.password)
			require.Error(t, err)
			assert.Nil(t, cred)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				var apiErr *api.Error
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
			}

			assert.Equal(t, tt.wantCalls, server.calls.Load())
			assert.Equal(t, models.Anonymous, store.State())

			_, err = sessions.GetSession(context.Background())
			assert.ErrorIs(t, err, storage.ErrSessionNotFound)

			last, ok := rec.Last()
			require.True(t, ok)
			assert.True(t, last.Failed())
			assert.Equal(t, "Login Failed", last.Title)
			assert.Equal(t, tt.wantMessage, last.Message)
		})
	}
}

func TestStore_Login_ServerWithoutMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	rec := notify.NewRecorder()
	store := NewStore(api.NewClient(server.URL), memory.New(), nil, WithNotifier(rec))

	_, err := store.Login(context.Background(), "al", "Secret123")
	require.Error(t, err)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, api.DefaultErrorMessage, last.Message)
}

func TestStore_Login_MissingToken(t *testing.T) {
	server := newFakeAuthServer(t, "")
	store, _ := newTestStore(t, server, memory.New())

	_, err := store.Login(context.Background(), "al", "Secret123")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "missing access token")
	assert.Equal(t, models.Anonymous, store.State())
}

func TestStore_Login_SaveFails(t *testing.T) {
	server := newFakeAuthServer(t, "token-1")
	sessions := &mockSessionStorage{saveErr: errors.New("disk full")}
	store, rec := newTestStore(t, server, sessions)

	_, err := store.Login(context.Background(), "al", "Secret123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save session")
	assert.Equal(t, models.Anonymous, store.State())

	last, _ := rec.Last()
	assert.True(t, last.Failed())
}

func TestStore_Register(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		email     string
		password  string
		wantErr   error
		wantAPI   bool
		wantCalls int32
	}{
		{name: "success", username: "alice", email: "alice@example.com", password: "Secret123", wantCalls: 1},
		{name: "short username", username: "al", email: "al@example.com", password: "Secret123", wantErr: models.ErrValidation},
		{name: "bad email", username: "alice", email: "alice.example.com", password: "Secret123", wantErr: models.ErrValidation},
		{name: "weak password", username: "alice", email: "alice@example.com", password: "secret123", wantErr: models.ErrValidation},
		{name: "short password", username: "alice", email: "alice@example.com", password: "Sec1", wantErr: models.ErrValidation},
		{name: "taken", username: "taken", email: "taken@example.com", password: "Secret123", wantAPI: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newFakeAuthServer(t, "token-1")
			store, rec := newTestStore(t, server, memory.New())

			err := store.Register(context.Background(), tt.username, tt.email, tt.password)
			assert.Equal(t, tt.wantCalls, server.calls.Load())
			assert.Equal(t, models.Anonymous, store.State())

			last, ok := rec.Last()
			require.True(t, ok)
			assert.Equal(t, notify.SubjectRegister, last.Subject)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, last.Failed())
			case tt.wantAPI:
				var apiErr *api.Error
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "User already exists", last.Message)
			default:
				require.NoError(t, err)
				assert.Equal(t, RegisteredMessage, last.Message)
			}
		})
	}
}

func TestStore_Logout(t *testing.T) {
	server := newFakeAuthServer(t, "token-1")
	sessions := memory.New()
	store, rec := newTestStore(t, server, sessions)

	var states []models.SessionState
	store.Subscribe(func(s models.SessionState) { states = append(states, s) })

	_, err := store.Login(context.Background(), "al", "Secret123")
	require.NoError(t, err)

	require.NoError(t, store.Logout(context.Background()))
	assert.Equal(t, models.Anonymous, store.State())
	_, ok := store.Credential()
	assert.False(t, ok)
	_, err = sessions.GetSession(context.Background())
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	// Повторный выход ничего не меняет
	rec.Drain()
	require.NoError(t, store.Logout(context.Background()))
	assert.Empty(t, rec.Outcomes())
	assert.Equal(t, []models.SessionState{models.Authenticated, models.Anonymous}, states)
}

func TestStore_Logout_StorageError(t *testing.T) {
	server := newFakeAuthServer(t, "token-1")
	sessions := &mockSessionStorage{}
	store, _ := newTestStore(t, server, sessions)

	_, err := store.Login(context.Background(), "al", "Secret123")
	require.NoError(t, err)

	sessions.deleteErr = errors.New("io error")
	err = store.Logout(context.Background())
	require.Error(t, err)
	// Токен в памяти сброшен даже при ошибке хранилища
	assert.Equal(t, models.Anonymous, store.State())
}

func TestStore_AuthorizedRequest_Unauthenticated(t *testing.T) {
	server := newFakeAuthServer(t, "token-1")
	store, _ := newTestStore(t, server, memory.New())

	err := store.AuthorizedRequest(context.Background(), http.MethodGet, "/notes", nil, nil)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	assert.Zero(t, server.calls.Load())
}

func TestStore_AuthorizedRequest_Rejected(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			server := newFakeAuthServer(t, "token-1")
			sessions := memory.New()
			store, _ := newTestStore(t, server, sessions)

			_, err := store.Login(context.Background(), "al", "Secret123")
			require.NoError(t, err)

			server.identityCode.Store(int32(code))
			_, err = store.CurrentIdentity(context.Background())
			require.ErrorIs(t, err, models.ErrSessionExpired)

			var apiErr *api.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, code, apiErr.StatusCode)
			assert.Equal(t, "Token has expired", apiErr.Message)

			assert.Equal(t, models.Anonymous, store.State())
			_, err = sessions.GetSession(context.Background())
			assert.ErrorIs(t, err, storage.ErrSessionNotFound)
		})
	}
}

func TestStore_CurrentIdentity_Cached(t *testing.T) {
	server := newFakeAuthServer(t, "token-1")
	store, _ := newTestStore(t, server, memory.New())

	_, err := store.Login(context.Background(), "al", "Secret123")
	require.NoError(t, err)

	for range 3 {
		identity, err := store.CurrentIdentity(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "al", identity.Username)
	}
	assert.Equal(t, int32(1), server.identityCalls.Load())

	// После выхода кэш сбрасывается
	require.NoError(t, store.Logout(context.Background()))
	_, err = store.CurrentIdentity(context.Background())
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	assert.Equal(t, int32(1), server.identityCalls.Load())
}

func TestStore_Restore(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tests := []struct {
		session   *storage.SessionData
		name      string
		restored  bool
		keepsData bool
	}{
		{
			name:     "nothing stored",
			restored: false,
		},
		{
			name:      "valid by stored expiry",
			session:   &storage.SessionData{Token: "opaque", Username: "al", ExpiresAt: now.Add(time.Hour).Unix()},
			restored:  true,
			keepsData: true,
		},
		{
			name:      "opaque token without expiry",
			session:   &storage.SessionData{Token: "opaque", Username: "al"},
			restored:  true,
			keepsData: true,
		},
		{
			name:     "expired by stored expiry",
			session:  &storage.SessionData{Token: "opaque", Username: "al", ExpiresAt: now.Add(-time.Minute).Unix()},
			restored: false,
		},
		{
			name:     "expired by token claim",
			session:  &storage.SessionData{Token: signedToken(t, now.Add(-time.Hour)), Username: "al"},
			restored: false,
		},
		{
			name:     "empty token",
			session:  &storage.SessionData{Username: "al"},
			restored: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &mockSessionStorage{data: tt.session}
			store := NewStore(api.NewClient("http://127.0.0.1:0"), sessions, nil, WithClock(clock))

			restored, err := store.Restore(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.restored, restored)

			if tt.restored {
				assert.Equal(t, models.Authenticated, store.State())
				cred, ok := store.Credential()
				require.True(t, ok)
				assert.Equal(t, tt.session.Token, cred.Token)
			} else {
				assert.Equal(t, models.Anonymous, store.State())
			}
			assert.Equal(t, tt.keepsData, sessions.data != nil)
		})
	}
}

func TestStore_Restore_StorageError(t *testing.T) {
	sessions := &mockSessionStorage{getErr: storage.ErrStorageClosed}
	store := NewStore(api.NewClient("http://127.0.0.1:0"), sessions, nil)

	restored, err := store.Restore(context.Background())
	assert.False(t, restored)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, ok := tokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = tokenExpiry("not-a-jwt")
	assert.False(t, ok)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "al"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok = tokenExpiry(noExp)
	assert.False(t, ok)
}

func TestStore_ExpireSession(t *testing.T) {
	ctx := context.Background()

	t.Run("ends the rejected session", func(t *testing.T) {
		server := newFakeAuthServer(t, "token-1")
		store, _ := newTestStore(t, server, memory.New())
		_, err := store.Login(ctx, "al", "Secret123")
		require.NoError(t, err)

		server.identityCode.Store(http.StatusUnauthorized)
		_, err = store.CurrentIdentity(ctx)
		require.ErrorIs(t, err, models.ErrSessionExpired)

		assert.True(t, store.ExpireSession(ctx, err))
		assert.Equal(t, models.Anonymous, store.State())
	})

	t.Run("keeps a newer login", func(t *testing.T) {
		server := newFakeAuthServer(t, "token-1")
		sessions := memory.New()
		store, _ := newTestStore(t, server, sessions)
		_, err := store.Login(ctx, "al", "Secret123")
		require.NoError(t, err)

		// сервер отклоняет token-1, пока пользователь уже вошел заново с token-2
		server.setToken("token-2")
		rejected := store.AuthorizedRequest(ctx, http.MethodGet, "/protected", nil, nil)
		require.ErrorIs(t, rejected, models.ErrSessionExpired)
		_, err = store.Login(ctx, "al", "Secret123")
		require.NoError(t, err)

		assert.False(t, store.ExpireSession(ctx, rejected))
		assert.Equal(t, models.Authenticated, store.State())
		cred, ok := store.Credential()
		require.True(t, ok)
		assert.Equal(t, "token-2", cred.Token)
		saved, err := sessions.GetSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "token-2", saved.Token)
	})

	t.Run("ignores other errors", func(t *testing.T) {
		server := newFakeAuthServer(t, "token-1")
		store, _ := newTestStore(t, server, memory.New())
		_, err := store.Login(ctx, "al", "Secret123")
		require.NoError(t, err)

		assert.False(t, store.ExpireSession(ctx, errors.New("boom")))
		assert.Equal(t, models.Authenticated, store.State())
	})
}

func TestStore_Login_SwitchUser(t *testing.T) {
	server := newFakeAuthServer(t, "token-1")
	store, _ := newTestStore(t, server, memory.New())
	ctx := context.Background()

	var states []models.SessionState
	store.Subscribe(func(s models.SessionState) { states = append(states, s) })

	_, err := store.Login(ctx, "al", "Secret123")
	require.NoError(t, err)
	// повторный вход тем же пользователем сессию не меняет
	_, err = store.Login(ctx, "al", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, []models.SessionState{models.Authenticated}, states)

	_, err = store.Login(ctx, "bob1", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, []models.SessionState{
		models.Authenticated,
		models.Anonymous,
		models.Authenticated,
	}, states)

	cred, ok := store.Credential()
	require.True(t, ok)
	assert.Equal(t, "bob1", cred.Username)
}
