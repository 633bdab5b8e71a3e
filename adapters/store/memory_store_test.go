package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ChallengeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SaveChallenge(ctx, "n1", time.Minute))

	live, err := s.ConsumeChallenge(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, live)

	live, err = s.ConsumeChallenge(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, live)

	live, err = s.ConsumeChallenge(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, live)
}

func TestMemoryStore_ChallengeExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.SaveChallenge(ctx, "n1", time.Minute))
	require.NoError(t, s.SaveChallenge(ctx, "n2", time.Hour))

	now = now.Add(2 * time.Minute)
	live, err := s.ConsumeChallenge(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, live)

	// Saving sweeps expired entries
	require.NoError(t, s.SaveChallenge(ctx, "n3", time.Minute))
	assert.Len(t, s.challenges, 2)
}

func TestMemoryStore_TokenInvalidation(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	invalidated, err := s.IsTokenInvalidated(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, invalidated)

	require.NoError(t, s.InvalidateToken(ctx, "t1", time.Hour))
	invalidated, err = s.IsTokenInvalidated(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, invalidated)

	now = now.Add(2 * time.Hour)
	invalidated, err = s.IsTokenInvalidated(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, invalidated)
}
