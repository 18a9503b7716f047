package cli

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

// notesServer минимальный сервер заметок для тестов команд
type notesServer struct {
	*httptest.Server
	notes   []pkgapi.Note
	token   string
	nextID  int
	revoked bool
	mu      sync.Mutex
}

func newNotesServer(t *testing.T) *notesServer {
	t.Helper()

	s := &notesServer{
		token:  "token-al",
		nextID: 4,
		notes: []pkgapi.Note{
			{ID: "id1", Title: "first", Content: "one"},
			{ID: "id2", Title: "second", Content: "two"},
			{ID: "id3", Title: "third", Content: "three"},
		},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)

	return s
}

func (s *notesServer) revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = true
}

func (s *notesServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	writeJSON := func(status int, v any) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch r.URL.Path {
	case "/login":
		var req pkgapi.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "al" || req.Password != "Secret123" {
			writeJSON(http.StatusUnauthorized, pkgapi.ErrorResponse{Message: "Invalid credentials"})
			return
		}
		s.revoked = false
		writeJSON(http.StatusOK, pkgapi.LoginResponse{AccessToken: s.token, Username: req.Username})
		return
	case "/register":
		var req pkgapi.RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username == "taken" {
			writeJSON(http.StatusBadRequest, pkgapi.ErrorResponse{Message: "User already exists"})
			return
		}
		writeJSON(http.StatusCreated, pkgapi.MessageResponse{Message: "User registered successfully."})
		return
	}

	if s.revoked || r.Header.Get("Authorization") != "Bearer "+s.token {
		writeJSON(http.StatusUnauthorized, pkgapi.ErrorResponse{Msg: "Token has expired"})
		return
	}

	id := pkgapi.NoteID(strings.TrimPrefix(r.URL.Path, "/notes/"))
	index := -1
	for i, n := range s.notes {
		if n.ID == id {
			index = i
		}
	}

	switch {
	case r.URL.Path == "/protected":
		writeJSON(http.StatusOK, pkgapi.IdentityResponse{Username: "al"})
	case r.URL.Path == "/notes" && r.Method == http.MethodGet:
		writeJSON(http.StatusOK, s.notes)
	case r.URL.Path == "/notes" && r.Method == http.MethodPost:
		var req pkgapi.NoteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		note := pkgapi.Note{ID: pkgapi.NoteID(fmt.Sprintf("n%d", s.nextID)), Title: req.Title, Content: req.Content}
		s.nextID++
		s.notes = append(s.notes, note)
		writeJSON(http.StatusCreated, note)
	case index < 0:
		writeJSON(http.StatusNotFound, pkgapi.ErrorResponse{Message: "Note not found"})
	case r.Method == http.MethodPut:
		var req pkgapi.NoteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.notes[index] = pkgapi.Note{ID: id, Title: req.Title, Content: req.Content}
		writeJSON(http.StatusOK, s.notes[index])
	case r.Method == http.MethodDelete:
		s.notes = append(s.notes[:index], s.notes[index+1:]...)
		writeJSON(http.StatusOK, struct{}{})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
