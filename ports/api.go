package ports

import (
	"context"
	"encoding/json"

	"github.com/layer-3/walletgate/core"
)

// AuthAPI is the client view of the auth server
type AuthAPI interface {
	// FetchChallenge retrieves a fresh login message
	FetchChallenge(ctx context.Context) (core.Challenge, error)

	// SubmitLogin posts a signed login message and returns the resulting session
	SubmitLogin(ctx context.Context, req core.WalletLogin) (*core.ClientSession, error)

	// SubmitRegistration posts a signed registration and returns the resulting session
	SubmitRegistration(ctx context.Context, req core.WalletRegistration) (*core.ClientSession, error)

	// Logout ends the session identified by token
	Logout(ctx context.Context, token string) error

	// Me returns the current user payload, or nil when not logged in
	Me(ctx context.Context, token string) (json.RawMessage, error)
}

// SessionStore persists the client session between runs
type SessionStore interface {
	Save(ctx context.Context, session *core.ClientSession) error
	// Load returns nil, nil when no session is stored
	Load(ctx context.Context) (*core.ClientSession, error)
	Clear(ctx context.Context) error
}
