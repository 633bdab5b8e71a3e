package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/walletgate/ports"
)

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	challenges        map[string]time.Time
	invalidatedTokens map[string]time.Time
	mu                sync.Mutex
	now               func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges:        make(map[string]time.Time),
		invalidatedTokens: make(map[string]time.Time),
		now:               time.Now,
	}
}

var _ ports.Store = (*MemoryStore)(nil)

// SaveChallenge records a nonce until ttl elapses
func (s *MemoryStore) SaveChallenge(ctx context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	s.challenges[nonce] = s.now().Add(ttl)
	return nil
}

// ConsumeChallenge removes the nonce and reports whether it had not expired
func (s *MemoryStore) ConsumeChallenge(ctx context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, exists := s.challenges[nonce]
	if !exists {
		return false, nil
	}
	delete(s.challenges, nonce)

	return s.now().Before(expiresAt), nil
}

// InvalidateToken marks a token as invalidated
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	s.invalidatedTokens[tokenID] = s.now().Add(expiry)
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	// The invalidation record outlives the token; past it the token is expired anyway
	return s.now().Before(expiryTime), nil
}

// sweep drops expired entries. Callers hold mu.
func (s *MemoryStore) sweep() {
	now := s.now()
	for nonce, expiresAt := range s.challenges {
		if !now.Before(expiresAt) {
			delete(s.challenges, nonce)
		}
	}
	for tokenID, expiresAt := range s.invalidatedTokens {
		if !now.Before(expiresAt) {
			delete(s.invalidatedTokens, tokenID)
		}
	}
}
