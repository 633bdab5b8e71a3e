package ports

import (
	"context"
	"time"
)

// Store keeps single-use login challenges and token invalidations
type Store interface {
	// SaveChallenge records a nonce that may be consumed once before ttl elapses
	SaveChallenge(ctx context.Context, nonce string, ttl time.Duration) error
	// ConsumeChallenge deletes the nonce and reports whether it was still live
	ConsumeChallenge(ctx context.Context, nonce string) (bool, error)

	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}
