package bot

import "sync"

// Mode is the conversation state for one chat.
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModeAnalysis   Mode = "awaiting_analysis"
	ModeComparison Mode = "awaiting_comparison"
)

// SessionStore holds per-chat conversation state. It is an explicit injected
// dependency rather than ambient per-user context, so turns can be replayed
// against a fresh store in tests.
type SessionStore struct {
	mu    sync.Mutex
	modes map[int64]Mode
}

func NewSessionStore() *SessionStore {
	return &SessionStore{modes: map[int64]Mode{}}
}

func (s *SessionStore) Get(chatID int64) Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.modes[chatID]; ok {
		return m
	}
	return ModeIdle
}

func (s *SessionStore) Set(chatID int64, m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == ModeIdle {
		delete(s.modes, chatID)
		return
	}
	s.modes[chatID] = m
}

func (s *SessionStore) Reset(chatID int64) {
	s.Set(chatID, ModeIdle)
}
