// Package notesync keeps the local note collection in step with the remote
// note store. All mutations are pessimistic: the collection changes only
// after the server confirmed the operation.
package notesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/iudanet/gophnotes/internal/client/api"
	"github.com/iudanet/gophnotes/internal/client/notify"
	"github.com/iudanet/gophnotes/internal/client/observe"
	"github.com/iudanet/gophnotes/internal/models"
	"github.com/iudanet/gophnotes/internal/validation"
	pkgapi "github.com/iudanet/gophnotes/pkg/api"
)

const notesPath = "/notes"

// Engine owns the NoteCollection of the current session
type Engine struct {
	session     Session
	notifier    notify.Notifier
	logger      *slog.Logger
	subscribers *observe.List[[]models.Note]
	unsubscribe func()

	notes   []models.Note
	epoch   uint64 // увеличивается при каждом завершении сессии
	version uint64 // номер последнего опубликованного снимка

	mu sync.RWMutex
}

// NewEngine создает движок синхронизации с пустой коллекцией.
// Коллекция очищается, когда сессия переходит в Anonymous.
func NewEngine(session Session, notifier notify.Notifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := &Engine{
		session:     session,
		notifier:    notify.Safe(notifier, logger),
		logger:      logger,
		subscribers: observe.New[[]models.Note](logger),
	}
	e.unsubscribe = session.Subscribe(func(state models.SessionState) {
		if state == models.Anonymous {
			e.reset()
		}
	})

	return e
}

// Close отписывает движок от сессии
func (e *Engine) Close() {
	e.unsubscribe()
}

// Start resolves the identity and then loads the notes. Notes are never
// fetched when the identity is unknown.
func (e *Engine) Start(ctx context.Context) (*models.Identity, error) {
	identity, err := e.session.CurrentIdentity(ctx)
	if err != nil {
		e.fail(ctx, notify.SubjectIdentity, err)
		e.notifier.Notify(notify.Failure(notify.SubjectFetch, failureTitles[notify.SubjectFetch], msgNotesSkipped, err))
		return nil, err
	}

	e.notifier.Notify(notify.Success(notify.SubjectIdentity, "Signed In",
		fmt.Sprintf("Signed in as %s.", identity.Username)))

	if err := e.Refresh(ctx); err != nil {
		return identity, err
	}
	return identity, nil
}

// Refresh replaces the collection with the server listing
func (e *Engine) Refresh(ctx context.Context) error {
	if err := e.requireSession(ctx, notify.SubjectFetch); err != nil {
		return err
	}

	epoch := e.currentEpoch()
	var listing []pkgapi.Note
	if err := e.session.AuthorizedRequest(ctx, http.MethodGet, notesPath, nil, &listing); err != nil {
		e.fail(ctx, notify.SubjectFetch, err)
		return err
	}

	notes := make([]models.Note, 0, len(listing))
	index := make(map[models.NoteID]int, len(listing))
	for _, n := range listing {
		note := fromWire(n)
		if note.ID == "" {
			e.logger.Warn("skipping note without id", "title", note.Title)
			continue
		}
		if i, ok := index[note.ID]; ok {
			notes[i] = note
			continue
		}
		index[note.ID] = len(notes)
		notes = append(notes, note)
	}

	if e.commit(epoch, func() bool {
		e.notes = notes
		return true
	}) {
		e.logger.Debug("notes refreshed", "count", len(notes))
	}
	e.notifier.Notify(notify.Success(notify.SubjectFetch, "Notes Fetched",
		fmt.Sprintf("Loaded %d notes.", len(notes))))

	return nil
}

// Create sends a new note and appends it with the id assigned by the server
func (e *Engine) Create(ctx context.Context, title, content string) (models.Note, error) {
	if err := validation.ValidateNote(title, content); err != nil {
		e.fail(ctx, notify.SubjectCreate, err)
		return models.Note{}, err
	}
	if err := e.requireSession(ctx, notify.SubjectCreate); err != nil {
		return models.Note{}, err
	}

	epoch := e.currentEpoch()
	var resp pkgapi.Note
	req := pkgapi.NoteRequest{Title: title, Content: content}
	if err := e.session.AuthorizedRequest(ctx, http.MethodPost, notesPath, req, &resp); err != nil {
		e.fail(ctx, notify.SubjectCreate, err)
		return models.Note{}, err
	}

	if resp.ID == "" {
		err := &api.Error{StatusCode: http.StatusOK, Message: "server response is missing note id"}
		e.fail(ctx, notify.SubjectCreate, err)
		return models.Note{}, err
	}

	note := merge(fromWire(resp), title, content)

	if e.commit(epoch, func() bool {
		if i := e.indexLocked(note.ID); i >= 0 {
			// повторная отправка вернула уже известный id
			e.notes[i] = note
		} else {
			e.notes = append(e.notes, note)
		}
		return true
	}) {
		e.logger.Debug("note created", "id", note.ID)
	}
	e.notifier.Notify(notify.Success(notify.SubjectCreate, "Note Created", msgCreated))

	return note, nil
}

// Update replaces the note in place, keeping its position
func (e *Engine) Update(ctx context.Context, id models.NoteID, title, content string) (models.Note, error) {
	if err := validation.ValidateNote(title, content); err != nil {
		e.fail(ctx, notify.SubjectUpdate, err)
		return models.Note{}, err
	}
	if err := e.requireSession(ctx, notify.SubjectUpdate); err != nil {
		return models.Note{}, err
	}
	if err := e.requireNote(ctx, id, notify.SubjectUpdate); err != nil {
		return models.Note{}, err
	}

	epoch := e.currentEpoch()
	var resp pkgapi.Note
	req := pkgapi.NoteRequest{Title: title, Content: content}
	if err := e.session.AuthorizedRequest(ctx, http.MethodPut, notePath(id), req, &resp); err != nil {
		e.fail(ctx, notify.SubjectUpdate, err)
		return models.Note{}, err
	}

	note := merge(fromWire(resp), title, content)
	note.ID = id

	if !e.commit(epoch, func() bool {
		i := e.indexLocked(id)
		if i >= 0 {
			e.notes[i] = note
		}
		return i >= 0
	}) {
		e.logger.Debug("updated note left the collection while in flight", "id", id)
	}
	e.notifier.Notify(notify.Success(notify.SubjectUpdate, "Note Updated", msgUpdated))

	return note, nil
}

// Remove deletes the note on the server and then locally
func (e *Engine) Remove(ctx context.Context, id models.NoteID) error {
	if err := e.requireSession(ctx, notify.SubjectDelete); err != nil {
		return err
	}
	if err := e.requireNote(ctx, id, notify.SubjectDelete); err != nil {
		return err
	}

	epoch := e.currentEpoch()
	if err := e.session.AuthorizedRequest(ctx, http.MethodDelete, notePath(id), nil, nil); err != nil {
		e.fail(ctx, notify.SubjectDelete, err)
		return err
	}

	e.commit(epoch, func() bool {
		i := e.indexLocked(id)
		if i >= 0 {
			e.notes = append(e.notes[:i:i], e.notes[i+1:]...)
		}
		return i >= 0
	})
	e.notifier.Notify(notify.Success(notify.SubjectDelete, "Note Deleted", msgDeleted))

	return nil
}

// Notes возвращает копию коллекции в порядке сервера
func (e *Engine) Notes() []models.Note {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

// Note возвращает заметку по id
func (e *Engine) Note(id models.NoteID) (models.Note, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.indexLocked(id); i >= 0 {
		return e.notes[i], true
	}
	return models.Note{}, false
}

// Len возвращает количество заметок
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.notes)
}

// Subscribe вызывает fn со снимком коллекции после каждого изменения
func (e *Engine) Subscribe(fn func([]models.Note)) (cancel func()) {
	return e.subscribers.Subscribe(fn)
}

// reset очищает коллекцию завершенной сессии. Ответы на запросы,
// отправленные до сброса, больше не применяются.
func (e *Engine) reset() {
	e.mu.Lock()
	e.epoch++
	if e.notes == nil {
		e.mu.Unlock()
		return
	}
	e.notes = nil
	e.version++
	version := e.version
	e.mu.Unlock()

	e.subscribers.PublishAt(version, []models.Note{})
}

func (e *Engine) currentEpoch() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.epoch
}

// commit применяет ответ сервера, если с момента отправки запроса сессия не
// завершилась, и публикует снимок. apply возвращает false, если коллекция
// не изменилась.
func (e *Engine) commit(epoch uint64, apply func() bool) bool {
	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		e.logger.Debug("discarding response of a finished session")
		return false
	}
	if !apply() {
		e.mu.Unlock()
		return false
	}
	e.version++
	version, snapshot := e.version, e.snapshotLocked()
	e.mu.Unlock()

	e.subscribers.PublishAt(version, snapshot)
	return true
}

func (e *Engine) requireSession(ctx context.Context, subject notify.Subject) error {
	if e.session.State() == models.Authenticated {
		return nil
	}
	e.fail(ctx, subject, models.ErrUnauthenticated)
	return models.ErrUnauthenticated
}

func (e *Engine) requireNote(ctx context.Context, id models.NoteID, subject notify.Subject) error {
	if _, ok := e.Note(id); ok {
		return nil
	}
	err := fmt.Errorf("%w: %s", models.ErrNotFound, id)
	e.fail(ctx, subject, err)
	return err
}

// fail emits the single failure outcome of an operation.
// A rejected token additionally ends the session.
func (e *Engine) fail(ctx context.Context, subject notify.Subject, err error) {
	title := failureTitles[subject]

	switch {
	case errors.Is(err, models.ErrSessionExpired):
		if !e.session.ExpireSession(ctx, err) {
			// отклонен токен, который уже заменен новым входом
			e.logger.Info("stale token rejected", "subject", subject)
			e.notifier.Notify(notify.Failure(subject, title, msgSessionChanged, err))
			return
		}
		outcome := notify.Failure(subject, "Session Expired", msgSessionExpired, err)
		outcome.SessionExpired = true
		e.notifier.Notify(outcome)
		return
	case errors.Is(err, models.ErrUnauthenticated):
		e.notifier.Notify(notify.Failure(subject, title, msgLoginRequired, err))
		return
	case errors.Is(err, models.ErrNotFound):
		e.notifier.Notify(notify.Failure(subject, title, msgNotFound, err))
		return
	}

	var vErr *validation.Error
	if errors.As(err, &vErr) {
		e.notifier.Notify(notify.Failure(subject, title, vErr.Reason, err))
		return
	}

	var apiErr *api.Error
	isAPIErr := errors.As(err, &apiErr)

	var message string
	switch subject {
	case notify.SubjectFetch, notify.SubjectIdentity:
		message = msgFetchFailed
		if subject == notify.SubjectIdentity {
			message = msgIdentityFailed
		}
		// текст сервера добавляется, если ответ был получен
		if isAPIErr && apiErr.StatusCode != 0 && apiErr.Message != "" {
			message += " " + apiErr.Message
		}
	default:
		message = api.DefaultErrorMessage
		if isAPIErr {
			message = apiErr.UserMessage()
		}
	}

	e.logger.Warn("operation failed", "subject", subject, "error", err)
	e.notifier.Notify(notify.Failure(subject, title, message, err))
}

func (e *Engine) indexLocked(id models.NoteID) int {
	for i := range e.notes {
		if e.notes[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) snapshotLocked() []models.Note {
	out := make([]models.Note, len(e.notes))
	copy(out, e.notes)
	return out
}

func notePath(id models.NoteID) string {
	return notesPath + "/" + url.PathEscape(string(id))
}

func fromWire(n pkgapi.Note) models.Note {
	return models.Note{ID: models.NoteID(n.ID), Title: n.Title, Content: n.Content}
}

// merge подставляет отправленные поля, если сервер вернул только id
func merge(note models.Note, title, content string) models.Note {
	if note.Title == "" {
		note.Title = title
	}
	if note.Content == "" {
		note.Content = content
	}
	return note
}
