package session

import (
	"log"
	"sync"
)

// Manager indexes live sessions by user and by thread, and hands out the
// per-user lock that serializes turn processing.
type Manager struct {
	mu       sync.RWMutex
	byUser   map[string]*GameSession
	byThread map[string]*GameSession
	locks    map[string]*sync.Mutex
}

func NewManager() *Manager {
	return &Manager{
		byUser:   make(map[string]*GameSession),
		byThread: make(map[string]*GameSession),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *Manager) HasSession(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byUser[userID]
	return ok
}

// Put registers a session. An existing session for the same user is replaced
// (last writer wins) and its thread association dropped.
func (m *Manager) Put(s *GameSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.byUser[s.UserID]; ok {
		log.Printf("session: replacing live session for user %s", s.UserID)
		if old.ThreadID != "" {
			delete(m.byThread, old.ThreadID)
		}
	}
	m.byUser[s.UserID] = s
	if s.ThreadID != "" {
		m.byThread[s.ThreadID] = s
	}
}

func (m *Manager) Get(userID string) (*GameSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byUser[userID]
	return s, ok
}

func (m *Manager) GetByThreadID(threadID string) (*GameSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byThread[threadID]
	return s, ok
}

// AssociateThread binds a thread id to a user's session so later messages in
// that thread resolve without the user id.
func (m *Manager) AssociateThread(userID, threadID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byUser[userID]
	if !ok {
		return false
	}
	if s.ThreadID != "" {
		delete(m.byThread, s.ThreadID)
	}
	s.ThreadID = threadID
	m.byThread[threadID] = s
	return true
}

// Remove drops a user's session from both indexes and returns it, or nil if
// there was none.
func (m *Manager) Remove(userID string) *GameSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byUser[userID]
	if !ok {
		return nil
	}
	delete(m.byUser, userID)
	if s.ThreadID != "" {
		delete(m.byThread, s.ThreadID)
	}
	return s
}

// Lock returns the mutex serializing turns for one user. The mutex outlives
// individual sessions so back-to-back runs by the same user stay ordered.
func (m *Manager) Lock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}
