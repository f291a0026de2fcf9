package editor

import (
	"errors"
	"sync"

	"cv-builder/internal/preview"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrNoSuchSession = errors.New("editor session not found")

// Manager tracks live editor sessions. Each session owns its document
// exclusively; two sessions never share a store, so the last save wins at
// the persistence layer only.
type Manager struct {
	repo     Repo
	gate     Gate
	exporter Exporter
	renderer *preview.Renderer
	log      zerolog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewManager(repo Repo, gate Gate, exporter Exporter, renderer *preview.Renderer, log zerolog.Logger) *Manager {
	return &Manager{
		repo:     repo,
		gate:     gate,
		exporter: exporter,
		renderer: renderer,
		log:      log,
		sessions: map[uuid.UUID]*Session{},
	}
}

// Open creates a new session, optionally bound to an identity.
func (m *Manager) Open(user *Identity) *Session {
	s := NewSession(m.repo, m.gate, m.exporter, m.renderer, m.log)
	if user != nil {
		s.SetIdentity(user)
	}
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

// Get returns a live session by id.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNoSuchSession
	}
	return s, nil
}

// Close discards a session; only the persisted document survives it.
func (m *Manager) Close(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// ForUser returns the sessions currently bound to a user.
func (m *Manager) ForUser(userID uuid.UUID) []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Session
	for _, s := range m.sessions {
		if u := s.Identity(); u != nil && u.ID == userID {
			out = append(out, s)
		}
	}
	return out
}
