package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
	"github.com/rs/zerolog"
)

// Observer is notified after a session has been stored
type Observer interface {
	LoginSucceeded(ctx context.Context, session *core.ClientSession) error
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ctx context.Context, session *core.ClientSession) error

func (f ObserverFunc) LoginSucceeded(ctx context.Context, session *core.ClientSession) error {
	return f(ctx, session)
}

// Registration is the signed proof collected before a wallet registration is submitted
type Registration struct {
	Account   core.Account
	Signature core.Signature
	Message   core.Challenge
}

// Profile holds the user-chosen fields of a wallet registration
type Profile struct {
	Username string
	Email    string
}

// Flow drives wallet-based authentication against the auth API
type Flow struct {
	guard     *Guard
	provider  ports.Provider
	api       ports.AuthAPI
	signer    *Signer
	sessions  ports.SessionStore
	observers []Observer
	logger    zerolog.Logger
}

// Option configures a Flow
type Option func(*Flow)

// WithSigner replaces the signer derived from the provider
func WithSigner(signer *Signer) Option {
	return func(f *Flow) {
		f.signer = signer
	}
}

// WithObserver adds an observer notified on successful login or registration
func WithObserver(observer Observer) Option {
	return func(f *Flow) {
		f.observers = append(f.observers, observer)
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// New creates a flow. provider may be nil when no wallet is available; wallet
// operations then fail with ProviderUnavailable.
func New(guard *Guard, provider ports.Provider, api ports.AuthAPI, sessions ports.SessionStore, opts ...Option) *Flow {
	f := &Flow{
		guard:    guard,
		provider: provider,
		api:      api,
		sessions: sessions,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.signer == nil && provider != nil {
		f.signer = NewProviderSigner(provider, f.logger)
	}
	return f
}

// Guard returns the guard shared by the flow's wallet operations
func (f *Flow) Guard() *Guard {
	return f.guard
}

// Login connects the wallet, signs a fresh login message and exchanges it for a session.
// The returned attempt is always in a terminal stage.
func (f *Flow) Login(ctx context.Context) (*Attempt, error) {
	attempt := newAttempt()
	if !f.guard.TryAcquire() {
		return attempt, attempt.fail(core.ErrAlreadyInProgress)
	}
	defer f.guard.Release()

	log := f.logger.With().Str("attempt", attempt.ID).Logger()

	attempt.Stage = StageConnecting
	account, err := f.resolveAccount(ctx)
	if err != nil {
		return attempt, f.failed(log, attempt, err)
	}
	attempt.Account = account

	attempt.Stage = StageFetchingChallenge
	message, err := f.api.FetchChallenge(ctx)
	if err != nil {
		return attempt, f.failed(log, attempt, err)
	}

	attempt.Stage = StageSigning
	signature, err := f.signer.Sign(ctx, message, account)
	if err != nil {
		return attempt, f.failed(log, attempt, err)
	}

	attempt.Stage = StageSubmitting
	session, err := f.api.SubmitLogin(ctx, core.WalletLogin{
		WalletAddress: account,
		Signature:     signature,
		Message:       message,
	})
	if err != nil {
		return attempt, f.failed(log, attempt, err)
	}

	if err := f.complete(ctx, session); err != nil {
		return attempt, f.failed(log, attempt, err)
	}
	attempt.succeed(session)
	log.Info().Str("account", string(account)).Msg("wallet login succeeded")

	return attempt, nil
}

// PrepareRegistration connects the wallet and signs a fresh login message, returning
// the proof to submit with Register.
func (f *Flow) PrepareRegistration(ctx context.Context) (*Registration, error) {
	attempt := newAttempt()
	if !f.guard.TryAcquire() {
		return nil, attempt.fail(core.ErrAlreadyInProgress)
	}
	defer f.guard.Release()

	log := f.logger.With().Str("attempt", attempt.ID).Logger()

	attempt.Stage = StageConnecting
	account, err := f.requestAccount(ctx)
	if err != nil {
		return nil, f.failed(log, attempt, err)
	}

	attempt.Stage = StageFetchingChallenge
	message, err := f.api.FetchChallenge(ctx)
	if err != nil {
		return nil, f.failed(log, attempt, err)
	}

	attempt.Stage = StageSigning
	signature, err := f.signer.Sign(ctx, message, account)
	if err != nil {
		return nil, f.failed(log, attempt, err)
	}

	return &Registration{
		Account:   account,
		Signature: signature,
		Message:   message,
	}, nil
}

// ErrNotPrepared is returned by Register when no signed registration is given
var ErrNotPrepared = fmt.Errorf("registration has no signature, call PrepareRegistration first: %w", core.ErrSignRejected)

// Register submits a prepared registration. It does not talk to the provider.
func (f *Flow) Register(ctx context.Context, reg *Registration, profile Profile) (*Attempt, error) {
	attempt := newAttempt()
	log := f.logger.With().Str("attempt", attempt.ID).Logger()

	if reg == nil || reg.Signature == "" || reg.Message == "" {
		return attempt, f.failed(log, attempt, ErrNotPrepared)
	}

	attempt.Account = reg.Account
	attempt.Stage = StageSubmitting
	session, err := f.api.SubmitRegistration(ctx, core.WalletRegistration{
		WalletLogin: core.WalletLogin{
			WalletAddress: reg.Account,
			Signature:     reg.Signature,
			Message:       reg.Message,
		},
		Username: profile.Username,
		Email:    profile.Email,
	})
	if err != nil {
		return attempt, f.failed(log, attempt, err)
	}

	if err := f.complete(ctx, session); err != nil {
		return attempt, f.failed(log, attempt, err)
	}
	attempt.succeed(session)
	log.Info().Str("account", string(reg.Account)).Msg("wallet registration succeeded")

	return attempt, nil
}

// Bind asks the wallet for an account to attach to a profile
func (f *Flow) Bind(ctx context.Context) (core.Account, error) {
	attempt := newAttempt()
	if !f.guard.TryAcquire() {
		return "", attempt.fail(core.ErrAlreadyInProgress)
	}
	defer f.guard.Release()

	attempt.Stage = StageConnecting
	account, err := f.requestAccount(ctx)
	if err != nil {
		return "", f.failed(f.logger, attempt, err)
	}
	return account, nil
}

// Logout ends the server session on a best-effort basis and clears the stored session
func (f *Flow) Logout(ctx context.Context) error {
	session, err := f.sessions.Load(ctx)
	if err != nil {
		f.logger.Warn().Err(err).Msg("could not load stored session")
	}

	var token string
	if session != nil {
		token = session.Token
	}
	if err := f.api.Logout(ctx, token); err != nil {
		f.logger.Debug().Err(err).Msg("server logout failed, clearing local session anyway")
	}

	if err := f.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStorage, err)
	}
	return nil
}

// CurrentUser asks the server who is logged in. It returns nil when nobody is.
func (f *Flow) CurrentUser(ctx context.Context) (json.RawMessage, error) {
	session, err := f.sessions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStorage, err)
	}

	var token string
	if session != nil {
		token = session.Token
	}
	return f.api.Me(ctx, token)
}

// resolveAccount prefers an already authorized account and prompts only when there is none
func (f *Flow) resolveAccount(ctx context.Context) (core.Account, error) {
	if f.provider == nil {
		return "", core.ErrProviderUnavailable
	}

	accounts, err := f.provider.ListAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) > 0 {
		return accounts[0], nil
	}
	return f.requestAccount(ctx)
}

func (f *Flow) requestAccount(ctx context.Context) (core.Account, error) {
	if f.provider == nil {
		return "", core.ErrProviderUnavailable
	}

	accounts, err := f.provider.RequestAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("provider returned no accounts: %w", core.ErrUserRejected)
	}
	return accounts[0], nil
}

// complete stores the session and notifies observers
func (f *Flow) complete(ctx context.Context, session *core.ClientSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if err := f.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStorage, err)
	}

	for _, observer := range f.observers {
		if err := observer.LoginSucceeded(ctx, session); err != nil {
			f.logger.Warn().Err(err).Msg("login observer failed")
		}
	}
	return nil
}

func (f *Flow) failed(log zerolog.Logger, attempt *Attempt, err error) *FlowError {
	flowErr := attempt.fail(err)
	log.Warn().
		Err(err).
		Str("stage", string(flowErr.Stage)).
		Str("reason", string(flowErr.Reason)).
		Msg("wallet flow failed")
	return flowErr
}
