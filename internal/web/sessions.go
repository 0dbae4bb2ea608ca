package web

import (
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/conorfennell/molcards/internal/quiz"
)

const sessionCookie = "molcards_session"

// sessionStore keeps one quiz.Session per browser, keyed by a cookie.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]quiz.Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]quiz.Session)}
}

func (s *sessionStore) get(id string) (quiz.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *sessionStore) put(id string, sess quiz.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// sessionID returns the browser's session ID, issuing a new cookie if needed.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func existingSessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
