package notesync

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	pkgapi "github.com/iudanet/gophnotes/pkg/api"
)

const testToken = "token-al"

// fakeRemote эмулирует удаленное хранилище заметок
type fakeRemote struct {
	*httptest.Server
	beforeHandle func(key string) // вызывается до обработки запроса
	failures     map[string]int   // "METHOD route" -> статус следующего ответа
	calls        map[string]int
	notes        []pkgapi.Note
	nextID       int
	token        string // выдается при входе и принимается в Authorization
	fixedID      string // create всегда отвечает этим id
	omitID       bool   // create отвечает без id
	total        int
	mu           sync.Mutex
}

func newFakeRemote(t *testing.T, seed ...pkgapi.Note) *fakeRemote {
	t.Helper()

	f := &fakeRemote{
		failures: make(map[string]int),
		calls:    make(map[string]int),
		notes:    append([]pkgapi.Note(nil), seed...),
		nextID:   len(seed) + 1,
		token:    testToken,
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Close)

	return f
}

func route(path string) string {
	if strings.HasPrefix(path, "/notes/") {
		return "/notes/:id"
	}
	return path
}

func (f *fakeRemote) handle(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + route(r.URL.Path)

	f.mu.Lock()
	hook := f.beforeHandle
	f.mu.Unlock()
	if hook != nil {
		hook(key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[key]++
	f.total++
	w.Header().Set("Content-Type", "application/json")

	if status, ok := f.failures[key]; ok {
		delete(f.failures, key)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Message: fmt.Sprintf("forced %d", status)})
		return
	}

	if r.URL.Path == "/login" {
		var req pkgapi.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "al" || req.Password != "Secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Message: "Invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(pkgapi.LoginResponse{AccessToken: f.token, Username: req.Username})
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Msg: "Missing Authorization Header"})
		return
	}

	id := pkgapi.NoteID(strings.TrimPrefix(r.URL.Path, "/notes/"))

	switch key {
	case "GET /protected":
		_ = json.NewEncoder(w).Encode(pkgapi.IdentityResponse{Username: "al"})
	case "GET /notes":
		_ = json.NewEncoder(w).Encode(f.notes)
	case "POST /notes":
		var req pkgapi.NoteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		note := pkgapi.Note{ID: pkgapi.NoteID(fmt.Sprintf("n%d", f.nextID)), Title: req.Title, Content: req.Content}
		f.nextID++
		if f.fixedID != "" {
			note.ID = pkgapi.NoteID(f.fixedID)
		}
		if i := f.indexLocked(note.ID); i >= 0 {
			f.notes[i] = note
		} else {
			f.notes = append(f.notes, note)
		}
		w.WriteHeader(http.StatusCreated)
		if f.omitID {
			_ = json.NewEncoder(w).Encode(pkgapi.NoteRequest{Title: req.Title, Content: req.Content})
			return
		}
		_ = json.NewEncoder(w).Encode(note)
	case "PUT /notes/:id":
		i := f.indexLocked(id)
		if i < 0 {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Message: "Note not found"})
			return
		}
		var req pkgapi.NoteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.notes[i] = pkgapi.Note{ID: id, Title: req.Title, Content: req.Content}
		_ = json.NewEncoder(w).Encode(f.notes[i])
	case "DELETE /notes/:id":
		i := f.indexLocked(id)
		if i < 0 {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Message: "Note not found"})
			return
		}
		f.notes = append(f.notes[:i], f.notes[i+1:]...)
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeRemote) indexLocked(id pkgapi.NoteID) int {
	for i, n := range f.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// failNext заставляет следующий запрос key вернуть status
func (f *fakeRemote) failNext(key string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = status
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func (f *fakeRemote) callsTo(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeRemote) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.notes))
	for _, n := range f.notes {
		ids = append(ids, string(n.ID))
	}
	return ids
}

func (f *fakeRemote) set(t *testing.T, apply func(f *fakeRemote)) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	apply(f)
}

// blockNext задерживает первый запрос key до вызова release
func (f *fakeRemote) blockNext(t *testing.T, key string) (reached <-chan struct{}, release func()) {
	t.Helper()

	reachedCh := make(chan struct{})
	releaseCh := make(chan struct{})
	var fired, released sync.Once
	release = func() { released.Do(func() { close(releaseCh) }) }
	t.Cleanup(release)

	f.set(t, func(f *fakeRemote) {
		f.beforeHandle = func(k string) {
			if k != key {
				return
			}
			fired.Do(func() {
				close(reachedCh)
				<-releaseCh
			})
		}
	})

	return reachedCh, release
}
