package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	nonceField    = "Nonce: "
	issuedAtField = "Issued At: "

	minUsernameLength = 3
	maxUsernameLength = 32
)

// LoginResult is what a successful login or registration produces
type LoginResult struct {
	User        *core.User
	Session     *core.Session
	AccessToken string
}

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	users     ports.UserRepository
	eventPub  ports.EventPublisher
	balances  ports.BalanceReader
	logger    zerolog.Logger

	appName      string
	challengeTTL time.Duration
	accessTTL    time.Duration
	now          func() time.Time
}

// Option configures an AuthService
type Option func(*AuthService)

// WithAppName sets the name shown in login messages
func WithAppName(name string) Option {
	return func(s *AuthService) {
		s.appName = name
	}
}

// WithTTLs overrides the login message and access token lifetimes
func WithTTLs(challengeTTL, accessTTL time.Duration) Option {
	return func(s *AuthService) {
		if challengeTTL > 0 {
			s.challengeTTL = challengeTTL
		}
		if accessTTL > 0 {
			s.accessTTL = accessTTL
		}
	}
}

// WithBalanceReader enables balance lookups
func WithBalanceReader(balances ports.BalanceReader) Option {
	return func(s *AuthService) {
		s.balances = balances
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *AuthService) {
		s.logger = logger
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	users ports.UserRepository,
	eventPub ports.EventPublisher,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		tokenizer:    tokenizer,
		store:        store,
		users:        users,
		eventPub:     eventPub,
		logger:       zerolog.Nop(),
		appName:      "Walletgate",
		challengeTTL: 5 * time.Minute,
		accessTTL:    24 * time.Hour,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessTTL returns the lifetime of issued access tokens
func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}

// CreateChallenge issues a single-use login message
func (s *AuthService) CreateChallenge(ctx context.Context) (*core.IssuedChallenge, error) {
	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now().UTC()
	challenge := &core.IssuedChallenge{
		Nonce:     hex.EncodeToString(nonceBytes),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}
	challenge.Message = core.Challenge(fmt.Sprintf("Sign in to %s\n%s%s\n%s%s",
		s.appName,
		nonceField, challenge.Nonce,
		issuedAtField, now.Format(time.RFC3339),
	))

	if err := s.store.SaveChallenge(ctx, challenge.Nonce, s.challengeTTL); err != nil {
		return nil, fmt.Errorf("failed to save challenge: %w", err)
	}
	return challenge, nil
}

// Login authenticates a wallet by its signature over a login message and
// creates the user on first sight
func (s *AuthService) Login(ctx context.Context, req core.WalletLogin) (*LoginResult, error) {
	if err := s.verify(ctx, req); err != nil {
		return nil, err
	}

	address := normalizeAddress(string(req.WalletAddress))
	user, err := s.users.GetByAddress(ctx, address)
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	now := s.now().UTC()
	if user == nil {
		user = &core.User{
			ID:            uuid.New().String(),
			WalletAddress: address,
			Username:      DefaultUsername(address),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.logger.Info().Str("address", address).Str("user_id", user.ID).Msg("created wallet user")
	} else {
		user.UpdatedAt = now
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	s.logBalance(ctx, address)
	return s.startSession(ctx, user)
}

// Register creates a wallet user with a chosen username
func (s *AuthService) Register(ctx context.Context, req core.WalletRegistration) (*LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return nil, core.ErrInvalidUsername
	}

	if err := s.verify(ctx, req.WalletLogin); err != nil {
		return nil, err
	}

	address := normalizeAddress(string(req.WalletAddress))
	existing, err := s.users.GetByAddress(ctx, address)
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, core.ErrUserExists
	}

	now := s.now().UTC()
	user := &core.User{
		ID:            uuid.New().String(),
		WalletAddress: address,
		Username:      username,
		Email:         strings.TrimSpace(req.Email),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.startSession(ctx, user)
}

// Logout invalidates the session behind an access token
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return fmt.Errorf("invalid access token: %w", err)
	}

	// Expired sessions still get a short invalidation record in case of clock skew
	remainingTime := time.Until(session.ExpiresAt)
	if remainingTime <= 0 {
		remainingTime = time.Hour
	}

	if err := s.store.InvalidateToken(ctx, session.ID, remainingTime); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	if err := s.eventPub.PublishLogout(ctx, session.Address, session.ID); err != nil {
		// The token is already invalidated in the store
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to publish logout event")
	}

	return nil
}

// ValidateAccessToken parses the token and checks it has not been invalidated
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, err
	}

	if s.now().After(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}

	invalidated, err := s.store.IsTokenInvalidated(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return nil, core.ErrTokenInvalidated
	}

	return session, nil
}

// CurrentUser returns the user behind a valid access token
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*core.User, error) {
	session, err := s.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, session.UserID)
}

// ValidateAddress reports whether address is a well-formed 0x address
func (s *AuthService) ValidateAddress(address string) bool {
	return core.IsValidAddress(address)
}

// ChecksumAddress returns the EIP-55 form of address
func (s *AuthService) ChecksumAddress(address string) (string, error) {
	if !core.IsValidAddress(address) {
		return "", core.ErrInvalidAddress
	}
	return common.HexToAddress(address).Hex(), nil
}

// Balance returns the native balance of address in ether
func (s *AuthService) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !core.IsValidAddress(address) {
		return decimal.Zero, core.ErrInvalidAddress
	}
	if s.balances == nil {
		return decimal.Zero, core.ErrChainUnavailable
	}
	return s.balances.BalanceOf(ctx, address)
}

// verify consumes the login message nonce and checks the signature.
// The nonce is spent even when the signature is wrong.
func (s *AuthService) verify(ctx context.Context, req core.WalletLogin) error {
	if !core.IsValidAddress(string(req.WalletAddress)) {
		return core.ErrInvalidAddress
	}

	nonce := ParseNonce(string(req.Message))
	if nonce == "" {
		return core.ErrInvalidChallenge
	}

	live, err := s.store.ConsumeChallenge(ctx, nonce)
	if err != nil {
		return fmt.Errorf("failed to consume challenge: %w", err)
	}
	if !live {
		return core.ErrInvalidChallenge
	}

	return VerifySignature(string(req.Message), string(req.Signature), string(req.WalletAddress))
}

func (s *AuthService) startSession(ctx context.Context, user *core.User) (*LoginResult, error) {
	now := s.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Address:   user.WalletAddress,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.accessTTL),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	if err := s.eventPub.PublishLogin(ctx, user.WalletAddress, session.ID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to publish login event")
	}

	return &LoginResult{
		User:        user,
		Session:     session,
		AccessToken: accessToken,
	}, nil
}

func (s *AuthService) logBalance(ctx context.Context, address string) {
	if s.balances == nil {
		return
	}
	balance, err := s.balances.BalanceOf(ctx, address)
	if err != nil {
		s.logger.Debug().Err(err).Str("address", address).Msg("could not read wallet balance")
		return
	}
	s.logger.Info().Str("address", address).Str("balance", balance.String()).Msg("wallet balance")
}

// ParseNonce extracts the nonce line from a login message
func ParseNonce(message string) string {
	for _, line := range strings.Split(message, "\n") {
		if strings.HasPrefix(line, nonceField) {
			return strings.TrimSpace(strings.TrimPrefix(line, nonceField))
		}
	}
	return ""
}

// DefaultUsername derives a username from the first six hex digits of an address
func DefaultUsername(address string) string {
	return "User_" + strings.ToUpper(address[2:8])
}

func normalizeAddress(address string) string {
	return strings.ToLower(address)
}
