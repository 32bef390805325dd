// Package remotetest is an in-memory backend speaking the real wire
// contract, for exercising the sync service without a network.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/remote"
	"github.com/go-chi/chi/v5"
)

// Server is a fake backend. Set FailStatus to force every mutating endpoint
// to answer with that status, simulating outages (503) or rejections (422).
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	nextID     int64
	sessions   map[int64]remote.SessionUpload
	splits     map[string]models.Split
	custom     map[int64]models.CustomExercise
	failStatus int
	healthy    bool
}

// New starts a fake backend. Callers must Close it.
func New() *Server {
	s := &Server{
		nextID:   100,
		sessions: make(map[int64]remote.SessionUpload),
		splits:   make(map[string]models.Split),
		custom:   make(map[int64]models.CustomExercise),
		healthy:  true,
	}

	r := chi.NewRouter()
	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/workout-sessions", s.handleCreateSession)
	r.Delete("/workout-sessions/{id}", s.handleDeleteSession)
	r.Get("/splits", s.handleListSplits)
	r.Post("/splits", s.handleUpsertSplit)
	r.Put("/splits/{id}", s.handleUpsertSplit)
	r.Delete("/splits/{id}", s.handleDeleteSplit)
	r.Get("/custom-exercises", s.handleListCustom)
	r.Post("/custom-exercises", s.handleCreateCustom)
	r.Put("/custom-exercises/{id}", s.handleUpdateCustom)
	r.Delete("/custom-exercises/{id}", s.handleDeleteCustom)

	s.Server = httptest.NewServer(r)
	return s
}

// SetFailStatus forces mutating endpoints to fail with the given status.
// Zero restores normal behavior.
func (s *Server) SetFailStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
}

// SetHealthy controls the /api/v1/health probe.
func (s *Server) SetHealthy(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = ok
}

// Sessions returns a copy of the uploaded sessions keyed by backend id.
func (s *Server) Sessions() map[int64]remote.SessionUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]remote.SessionUpload, len(s.sessions))
	for k, v := range s.sessions {
		out[k] = v
	}
	return out
}

// CustomExercises returns a copy of the stored custom exercises.
func (s *Server) CustomExercises() []models.CustomExercise {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CustomExercise, 0, len(s.custom))
	for _, v := range s.custom {
		out = append(out, v)
	}
	return out
}

// SeedCustomExercise installs a server-side custom exercise.
func (s *Server) SeedCustomExercise(e models.CustomExercise) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.BackendID == 0 {
		s.nextID++
		e.BackendID = s.nextID
	}
	s.custom[e.BackendID] = e
}

func (s *Server) failing(w http.ResponseWriter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failStatus != 0 {
		writeJSON(w, s.failStatus, map[string]string{"error": http.StatusText(s.failStatus)})
		return true
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ok := s.healthy
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	var upload remote.SessionUpload
	if err := json.NewDecoder(r.Body).Decode(&upload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.sessions[id] = upload
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad id"})
		return
	}
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown session"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListSplits(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]models.Split, 0, len(s.splits))
	for _, v := range s.splits {
		out = append(out, v)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpsertSplit(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	var split models.Split
	if err := json.NewDecoder(r.Body).Decode(&split); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.mu.Lock()
	s.splits[split.ID] = split
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, split)
}

func (s *Server) handleDeleteSplit(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	s.mu.Lock()
	delete(s.splits, chi.URLParam(r, "id"))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListCustom(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.CustomExercises())
}

func (s *Server) handleCreateCustom(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	var e models.CustomExercise
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.mu.Lock()
	s.nextID++
	e.BackendID = s.nextID
	e.PendingSync = false
	s.custom[e.BackendID] = e
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int64{"id": e.BackendID})
}

func (s *Server) handleUpdateCustom(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad id"})
		return
	}
	var e models.CustomExercise
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	e.BackendID = id
	s.mu.Lock()
	s.custom[id] = e
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteCustom(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad id"})
		return
	}
	s.mu.Lock()
	delete(s.custom, id)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
