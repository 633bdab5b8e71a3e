package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
	"github.com/rs/zerolog"
)

// SignStrategy is one way of asking a provider for a signature
type SignStrategy interface {
	Name() string
	Sign(ctx context.Context, message core.Challenge, account core.Account) (core.Signature, error)
}

// SignFunc adapts a function to SignStrategy
type SignFunc struct {
	Label string
	Fn    func(ctx context.Context, message core.Challenge, account core.Account) (core.Signature, error)
}

func (f SignFunc) Name() string { return f.Label }

func (f SignFunc) Sign(ctx context.Context, message core.Challenge, account core.Account) (core.Signature, error) {
	return f.Fn(ctx, message, account)
}

// Signer tries its strategies in order until one produces a signature
type Signer struct {
	strategies []SignStrategy
	logger     zerolog.Logger
}

// NewSigner creates a signer over an ordered list of strategies
func NewSigner(logger zerolog.Logger, strategies ...SignStrategy) *Signer {
	return &Signer{
		strategies: strategies,
		logger:     logger,
	}
}

// NewProviderSigner builds the standard strategy list for a provider:
// the primary call shape, then the legacy one when the provider has it.
func NewProviderSigner(provider ports.Provider, logger zerolog.Logger) *Signer {
	strategies := []SignStrategy{
		SignFunc{Label: "personal_sign", Fn: provider.Sign},
	}
	if legacy, ok := provider.(ports.LegacySigner); ok {
		strategies = append(strategies, SignFunc{Label: "eth_sign", Fn: legacy.LegacySign})
	}
	return NewSigner(logger, strategies...)
}

// Sign asks each strategy in turn. A rejection, a pending request or an
// unreachable provider stops the sequence so the user is never prompted twice
// for the same message.
func (s *Signer) Sign(ctx context.Context, message core.Challenge, account core.Account) (core.Signature, error) {
	if len(s.strategies) == 0 {
		return "", fmt.Errorf("no signing strategy configured: %w", core.ErrSignRejected)
	}

	var lastErr error
	for _, strategy := range s.strategies {
		sig, err := strategy.Sign(ctx, message, account)
		if err == nil {
			return sig, nil
		}
		if isFinal(err) {
			return "", err
		}

		s.logger.Debug().Err(err).Str("strategy", strategy.Name()).Msg("signing strategy failed, trying next")
		lastErr = err
	}

	return "", fmt.Errorf("%w: %w", core.ErrSignRejected, lastErr)
}

func isFinal(err error) bool {
	return errors.Is(err, core.ErrProviderUnavailable) ||
		errors.Is(err, core.ErrSignRejected) ||
		errors.Is(err, core.ErrUserRejected) ||
		errors.Is(err, core.ErrRequestPending) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
