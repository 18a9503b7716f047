// Package auth holds the client session: the bearer credential issued by the
// server, the resolved identity, and the persisted copy used across restarts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/iudanet/gophnotes/internal/client/api"
	"github.com/iudanet/gophnotes/internal/client/notify"
	"github.com/iudanet/gophnotes/internal/client/observe"
	"github.com/iudanet/gophnotes/internal/client/storage"
	"github.com/iudanet/gophnotes/internal/models"
	"github.com/iudanet/gophnotes/internal/validation"
	pkgapi "github.com/iudanet/gophnotes/pkg/api"
)

const (
	identityPath = "/protected"

	// RegisteredMessage показывается после успешной регистрации
	RegisteredMessage = "Registration Successful! You can now log in."
	// LoggedOutMessage показывается после выхода
	LoggedOutMessage = "You have been logged out."
)

// Store is the single source of truth for the session credential.
// It is safe for concurrent use; network calls are made without holding the lock.
type Store struct {
	api      api.ClientAPI
	storage  storage.SessionStorage
	notifier notify.Notifier
	logger   *slog.Logger
	states   *observe.List[models.SessionState]
	now      func() time.Time

	credential *models.Credential
	identity   *models.Identity
	expiresAt  time.Time
	version    uint64 // номер последнего изменения состояния

	mu sync.RWMutex
}

// Option настраивает Store
type Option func(*Store)

// WithNotifier задает получателя outcome для login/register/logout
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithClock подменяет источник времени (используется в тестах)
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore создает хранилище сессии в состоянии Anonymous.
// Для загрузки сохраненной сессии вызовите Restore.
func NewStore(client api.ClientAPI, sessionStorage storage.SessionStorage, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Store{
		api:      client,
		storage:  sessionStorage,
		notifier: notify.Nop{},
		logger:   logger,
		states:   observe.New[models.SessionState](logger),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.notifier = notify.Safe(s.notifier, logger)

	return s
}

// Login выполняет аутентификацию и сохраняет полученный токен.
// Пустые username/password отклоняются без обращения к серверу.
func (s *Store) Login(ctx context.Context, username, password string) (*models.Credential, error) {
	const title = "Login Failed"

	if err := validation.ValidateCredentials(username, password); err != nil {
		s.notifier.Notify(notify.Failure(notify.SubjectLogin, title, reason(err), err))
		return nil, err
	}

	resp, err := s.api.Login(ctx, pkgapi.LoginRequest{Username: username, Password: password})
	if err != nil {
		apiErr := asAPIError(err)
		s.logger.Info("login rejected", "username", username, "status", apiErr.StatusCode)
		s.notifier.Notify(notify.Failure(notify.SubjectLogin, title, apiErr.UserMessage(), apiErr))
		return nil, apiErr
	}

	if resp.AccessToken == "" {
		apiErr := &api.Error{StatusCode: http.StatusOK, Message: "server response is missing access token"}
		s.notifier.Notify(notify.Failure(notify.SubjectLogin, title, apiErr.UserMessage(), apiErr))
		return nil, apiErr
	}

	cred := &models.Credential{Token: resp.AccessToken, Username: resp.Username}
	if cred.Username == "" {
		cred.Username = username
	}
	expiresAt, _ := tokenExpiry(cred.Token)

	session := &storage.SessionData{
		Token:    cred.Token,
		Username: cred.Username,
		SavedAt:  s.now().Unix(),
	}
	if !expiresAt.IsZero() {
		session.ExpiresAt = expiresAt.Unix()
	}
	if err := s.storage.SaveSession(ctx, session); err != nil {
		err = fmt.Errorf("failed to save session: %w", err)
		s.notifier.Notify(notify.Failure(notify.SubjectLogin, title, api.DefaultErrorMessage, err))
		return nil, err
	}

	s.setCredential(cred, expiresAt)
	s.logger.Info("logged in", "username", cred.Username)
	s.notifier.Notify(notify.Success(notify.SubjectLogin, "Login Successful", fmt.Sprintf("Welcome, %s!", cred.Username)))

	result := *cred
	return &result, nil
}

// Register регистрирует нового пользователя. Сессия при этом не создается.
func (s *Store) Register(ctx context.Context, username, email, password string) error {
	const title = "Registration Failed"

	for _, check := range []func() error{
		func() error { return validation.ValidateUsername(username) },
		func() error { return validation.ValidateEmail(email) },
		func() error { return validation.ValidatePassword(password) },
	} {
		if err := check(); err != nil {
			s.notifier.Notify(notify.Failure(notify.SubjectRegister, title, reason(err), err))
			return err
		}
	}

	_, err := s.api.Register(ctx, pkgapi.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		apiErr := asAPIError(err)
		s.notifier.Notify(notify.Failure(notify.SubjectRegister, title, apiErr.UserMessage(), apiErr))
		return apiErr
	}

	s.logger.Info("registered", "username", username)
	s.notifier.Notify(notify.Success(notify.SubjectRegister, "Registration Successful", RegisteredMessage))
	return nil
}

// Logout удаляет токен и кэш identity. Повторный вызов безопасен.
func (s *Store) Logout(ctx context.Context) error {
	had := s.clear("")

	if err := s.storage.DeleteSession(ctx); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		s.logger.Error("failed to delete persisted session", "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if had {
		s.logger.Info("logged out")
		s.notifier.Notify(notify.Success(notify.SubjectLogout, "Logged Out", LoggedOutMessage))
	}
	return nil
}

// AuthorizedRequest отправляет запрос с заголовком Authorization: Bearer <token>.
// Без токена возвращает models.ErrUnauthenticated, не обращаясь к сети.
// Ответ 401/403 завершает сессию и возвращает models.ErrSessionExpired.
func (s *Store) AuthorizedRequest(ctx context.Context, method, path string, body, result any) error {
	token := s.token()
	if token == "" {
		return models.ErrUnauthenticated
	}

	err := s.api.Do(ctx, method, path, token, body, result)
	if err == nil {
		return nil
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Unauthorized() {
		s.expire(ctx, token)
		return &expiredError{apiErr: apiErr, token: token}
	}

	return err
}

// ExpireSession завершает сессию, токен которой отклонен в err.
// Сессия, начатая новым входом после отправки запроса, не затрагивается.
// Возвращает true, если клиент остался без сессии.
func (s *Store) ExpireSession(ctx context.Context, err error) bool {
	var expired *expiredError
	if errors.As(err, &expired) {
		s.expire(ctx, expired.token)
	}
	return s.State() == models.Anonymous
}

// CurrentIdentity возвращает пользователя, которому принадлежит токен.
// Результат кэшируется до выхода.
func (s *Store) CurrentIdentity(ctx context.Context) (*models.Identity, error) {
	s.mu.RLock()
	cached := s.identity
	s.mu.RUnlock()
	if cached != nil {
		identity := *cached
		return &identity, nil
	}

	token := s.token()

	var resp pkgapi.IdentityResponse
	if err := s.AuthorizedRequest(ctx, http.MethodGet, identityPath, nil, &resp); err != nil {
		return nil, err
	}

	identity := &models.Identity{Username: resp.Username}

	s.mu.Lock()
	// токен мог смениться, пока шел запрос
	if s.credential != nil && s.credential.Token == token {
		s.identity = identity
	}
	s.mu.Unlock()

	result := *identity
	return &result, nil
}

// Restore загружает сохраненную сессию. Возвращает true, если сессия восстановлена.
// Токен с истекшим exp удаляется из хранилища.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	data, err := s.storage.GetSession(ctx)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}

	var expiresAt time.Time
	if data.ExpiresAt > 0 {
		expiresAt = time.Unix(data.ExpiresAt, 0)
	} else if exp, ok := tokenExpiry(data.Token); ok {
		expiresAt = exp
	}

	if data.Token == "" || (!expiresAt.IsZero() && !s.now().Before(expiresAt)) {
		s.logger.Info("discarding stored session", "username", data.Username, "expires_at", expiresAt)
		if err := s.storage.DeleteSession(ctx); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
			return false, fmt.Errorf("failed to delete stale session: %w", err)
		}
		return false, nil
	}

	s.setCredential(&models.Credential{Token: data.Token, Username: data.Username}, expiresAt)
	s.logger.Debug("session restored", "username", data.Username)
	return true, nil
}

// State возвращает текущее состояние сессии
func (s *Store) State() models.SessionState {
	if s.token() == "" {
		return models.Anonymous
	}
	return models.Authenticated
}

// Credential возвращает копию текущего токена
func (s *Store) Credential() (models.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.credential == nil {
		return models.Credential{}, false
	}
	return *s.credential, true
}

// ExpiresAt возвращает срок действия токена, если он известен
func (s *Store) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.credential == nil || s.expiresAt.IsZero() {
		return time.Time{}, false
	}
	return s.expiresAt, true
}

// Subscribe подписывает fn на изменения состояния сессии
func (s *Store) Subscribe(fn func(models.SessionState)) (cancel func()) {
	return s.states.Subscribe(fn)
}

func (s *Store) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.credential == nil {
		return ""
	}
	return s.credential.Token
}

// setCredential устанавливает новый токен. Вход под другим пользователем
// завершает предыдущую сессию: подписчики получают Anonymous, затем
// Authenticated.
func (s *Store) setCredential(cred *models.Credential, expiresAt time.Time) {
	type change struct {
		state   models.SessionState
		version uint64
	}
	var changes []change

	s.mu.Lock()
	prev := s.credential
	s.credential = cred
	s.identity = nil
	s.expiresAt = expiresAt

	switched := prev != nil && prev.Username != cred.Username
	if switched {
		s.version++
		changes = append(changes, change{state: models.Anonymous, version: s.version})
	}
	if prev == nil || switched {
		s.version++
		changes = append(changes, change{state: models.Authenticated, version: s.version})
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.states.PublishAt(c.version, c.state)
	}
}

// clear сбрасывает сессию. Если token не пуст, сброс выполняется только
// когда текущий токен совпадает с ним.
func (s *Store) clear(token string) bool {
	s.mu.Lock()
	if s.credential == nil || (token != "" && s.credential.Token != token) {
		s.mu.Unlock()
		return false
	}
	s.credential = nil
	s.identity = nil
	s.expiresAt = time.Time{}
	s.version++
	version := s.version
	s.mu.Unlock()

	s.states.PublishAt(version, models.Anonymous)
	return true
}

// expire завершает сессию, токен которой отклонил сервер
func (s *Store) expire(ctx context.Context, token string) {
	if !s.clear(token) {
		return
	}

	s.logger.Warn("session token rejected by server, logging out")
	if err := s.storage.DeleteSession(ctx); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		s.logger.Error("failed to delete persisted session", "error", err)
	}
}

func asAPIError(err error) *api.Error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &api.Error{Message: err.Error(), Err: err}
}

func reason(err error) string {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		return vErr.Reason
	}
	return err.Error()
}
