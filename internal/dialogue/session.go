package dialogue

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/sells-group/voice-agent/internal/model"
)

// Session is the per-call dialogue state.
type Session struct {
	CallID      string              `json:"callId"`
	Profile     model.LeadProfile   `json:"profile"`
	Draft       model.Draft         `json:"draft"`
	Started     bool                `json:"started"`
	Completed   bool                `json:"completed"`
	FieldMisses map[model.Field]int `json:"fieldMisses"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func (s *Session) clone() *Session {
	out := *s
	out.FieldMisses = maps.Clone(s.FieldMisses)
	if out.FieldMisses == nil {
		out.FieldMisses = make(map[model.Field]int)
	}
	return &out
}

// SessionStore holds live sessions keyed by call id.
type SessionStore interface {
	// Get returns nil without error when no session exists.
	Get(ctx context.Context, callID string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, callID string) error
	// Evict drops sessions last updated before cutoff and reports how many.
	Evict(ctx context.Context, cutoff time.Time) (int, error)
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewMemorySessionStore returns an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

func (m *MemorySessionStore) Get(_ context.Context, callID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[callID]
	if !ok {
		return nil, nil
	}
	return s.clone(), nil
}

func (m *MemorySessionStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.CallID] = s.clone()
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, callID)
	return nil
}

func (m *MemorySessionStore) Evict(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len reports the number of resident sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
