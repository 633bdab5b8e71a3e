package ports

import (
	"context"

	"github.com/layer-3/walletgate/core"
)

// Provider is a wallet that owns accounts and signs messages for them
type Provider interface {
	// ListAccounts returns the accounts already authorized, without prompting
	ListAccounts(ctx context.Context) ([]core.Account, error)

	// RequestAccounts prompts the user to authorize accounts
	RequestAccounts(ctx context.Context) ([]core.Account, error)

	// Sign signs message with account using the provider's primary call shape
	Sign(ctx context.Context, message core.Challenge, account core.Account) (core.Signature, error)
}

// LegacySigner is implemented by providers that also expose the older signing call shape
type LegacySigner interface {
	LegacySign(ctx context.Context, message core.Challenge, account core.Account) (core.Signature, error)
}
