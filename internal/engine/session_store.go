package engine

import "sync"

// MemorySessionStore is an in-memory SessionStore implementation. Useful in
// tests and when session persistence is disabled.
type MemorySessionStore struct {
	mu     sync.RWMutex
	active map[string]string // orgID → conversationID
}

// NewMemorySessionStore creates an in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{active: make(map[string]string)}
}

func (s *MemorySessionStore) ActiveConversation(orgID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[orgID]
	return id, ok && id != ""
}

func (s *MemorySessionStore) SetActive(orgID, conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[orgID] = conversationID
}

func (s *MemorySessionStore) ClearActive(orgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, orgID)
}
