package sessionstore

import (
	"context"
	"sync"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

// MemoryStore keeps the session in memory.
// This is primarily intended for testing purposes.
type MemoryStore struct {
	session *core.ClientSession
	mu      sync.RWMutex
}

var _ ports.SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores the session
func (s *MemoryStore) Save(ctx context.Context, session *core.ClientSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = session
	return nil
}

// Load returns the stored session or nil
func (s *MemoryStore) Load(ctx context.Context) (*core.ClientSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.session, nil
}

// Clear drops the stored session
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	return nil
}
