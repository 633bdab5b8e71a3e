package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletgate/adapters/store"
	"github.com/layer-3/walletgate/adapters/tokenizer"
	"github.com/layer-3/walletgate/adapters/users"
	"github.com/layer-3/walletgate/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	logins  []string
	logouts []string
	err     error
}

func (p *recordingPublisher) PublishLogin(ctx context.Context, address, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, address)
	return p.err
}

func (p *recordingPublisher) PublishLogout(ctx context.Context, address, tokenID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, tokenID)
	return p.err
}

type fixedBalance decimal.Decimal

func (b fixedBalance) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	return decimal.Decimal(b), nil
}

type wallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newWallet(t *testing.T) wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet{key: key, address: strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())}
}

func (w wallet) login(t *testing.T, message core.Challenge) core.WalletLogin {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return core.WalletLogin{
		WalletAddress: core.Account(w.address),
		Signature:     core.Signature(hexutil.Encode(sig)),
		Message:       message,
	}
}

func newTestService(t *testing.T, opts ...Option) (*AuthService, *recordingPublisher) {
	t.Helper()
	key, err := tokenizer.LoadSigningKey("")
	require.NoError(t, err)
	repo, err := users.NewMemDBRepository()
	require.NoError(t, err)

	pub := &recordingPublisher{}
	return NewAuthService(tokenizer.NewJWTTokenizer(key), store.NewMemoryStore(), repo, pub, opts...), pub
}

func challenge(t *testing.T, s *AuthService) core.Challenge {
	t.Helper()
	c, err := s.CreateChallenge(context.Background())
	require.NoError(t, err)
	return c.Message
}

func TestAuthService_CreateChallenge(t *testing.T) {
	s, _ := newTestService(t, WithAppName("Test"))

	first, err := s.CreateChallenge(context.Background())
	require.NoError(t, err)
	second, err := s.CreateChallenge(context.Background())
	require.NoError(t, err)

	assert.Len(t, first.Nonce, 32)
	assert.NotEqual(t, first.Nonce, second.Nonce)
	assert.True(t, strings.HasPrefix(string(first.Message), "Sign in to Test\n"))
	assert.Equal(t, first.Nonce, ParseNonce(string(first.Message)))
	assert.Equal(t, 5*time.Minute, first.ExpiresAt.Sub(first.IssuedAt))
}

func TestAuthService_LoginCreatesUserOnce(t *testing.T) {
	ctx := context.Background()
	s, pub := newTestService(t)
	w := newWallet(t)

	result, err := s.Login(ctx, w.login(t, challenge(t, s)))
	require.NoError(t, err)
	assert.Equal(t, w.address, result.User.WalletAddress)
	assert.Equal(t, DefaultUsername(w.address), result.User.Username)
	assert.NotEmpty(t, result.AccessToken)

	again, err := s.Login(ctx, w.login(t, challenge(t, s)))
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, again.User.ID)
	assert.NotEqual(t, result.Session.ID, again.Session.ID)

	assert.Equal(t, []string{w.address, w.address}, pub.logins)

	user, err := s.CurrentUser(ctx, again.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, user.ID)
}

func TestAuthService_LoginAcceptsChecksummedAddress(t *testing.T) {
	s, _ := newTestService(t)
	w := newWallet(t)

	req := w.login(t, challenge(t, s))
	req.WalletAddress = core.Account(crypto.PubkeyToAddress(w.key.PublicKey).Hex())

	result, err := s.Login(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, w.address, result.User.WalletAddress)
}

func TestAuthService_ChallengeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	w := newWallet(t)

	req := w.login(t, challenge(t, s))
	_, err := s.Login(ctx, req)
	require.NoError(t, err)

	_, err = s.Login(ctx, req)
	assert.ErrorIs(t, err, core.ErrInvalidChallenge)
}

func TestAuthService_WrongSignerSpendsChallenge(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	w, mallory := newWallet(t), newWallet(t)

	message := challenge(t, s)
	forged := mallory.login(t, message)
	forged.WalletAddress = core.Account(w.address)

	_, err := s.Login(ctx, forged)
	assert.ErrorIs(t, err, core.ErrInvalidSignature)

	_, err = s.Login(ctx, w.login(t, message))
	assert.ErrorIs(t, err, core.ErrInvalidChallenge)
}

func TestAuthService_LoginRejectsBadInput(t *testing.T) {
	s, _ := newTestService(t)
	w := newWallet(t)

	req := w.login(t, challenge(t, s))
	req.WalletAddress = "0x123"
	_, err := s.Login(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	_, err = s.Login(context.Background(), w.login(t, "Sign in to Test\nNonce: unknown"))
	assert.ErrorIs(t, err, core.ErrInvalidChallenge)

	_, err = s.Login(context.Background(), w.login(t, "no nonce here"))
	assert.ErrorIs(t, err, core.ErrInvalidChallenge)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	w := newWallet(t)

	_, err := s.Register(ctx, core.WalletRegistration{WalletLogin: w.login(t, challenge(t, s)), Username: "al"})
	assert.ErrorIs(t, err, core.ErrInvalidUsername)

	result, err := s.Register(ctx, core.WalletRegistration{
		WalletLogin: w.login(t, challenge(t, s)),
		Username:    " alice ",
		Email:       "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, "alice@example.com", result.User.Email)

	_, err = s.Register(ctx, core.WalletRegistration{WalletLogin: w.login(t, challenge(t, s)), Username: "alice2"})
	assert.ErrorIs(t, err, core.ErrUserExists)

	// A registered wallet logs in as the same user
	login, err := s.Login(ctx, w.login(t, challenge(t, s)))
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, login.User.ID)
	assert.Equal(t, "alice", login.User.Username)
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	s, pub := newTestService(t)
	w := newWallet(t)

	result, err := s.Login(ctx, w.login(t, challenge(t, s)))
	require.NoError(t, err)

	_, err = s.ValidateAccessToken(ctx, result.AccessToken)
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, result.AccessToken))
	assert.Equal(t, []string{result.Session.ID}, pub.logouts)

	_, err = s.ValidateAccessToken(ctx, result.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated)

	err = s.Logout(ctx, "garbage")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestAuthService_PublishFailureDoesNotFailLogin(t *testing.T) {
	s, pub := newTestService(t)
	pub.err = errors.New("stream down")
	w := newWallet(t)

	_, err := s.Login(context.Background(), w.login(t, challenge(t, s)))
	assert.NoError(t, err)
}

func TestAuthService_AddressHelpers(t *testing.T) {
	s, _ := newTestService(t)

	assert.True(t, s.ValidateAddress("0x52908400098527886E0F7030069857D2E4169EE7"))
	assert.False(t, s.ValidateAddress("52908400098527886E0F7030069857D2E4169EE7"))
	assert.False(t, s.ValidateAddress("0x1234"))

	checksummed, err := s.ChecksumAddress("0x52908400098527886e0f7030069857d2e4169ee7")
	require.NoError(t, err)
	assert.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", checksummed)

	_, err = s.ChecksumAddress("nope")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	assert.Equal(t, "User_529084", DefaultUsername("0x52908400098527886e0f7030069857d2e4169ee7"))
}

func TestAuthService_Balance(t *testing.T) {
	const address = "0x52908400098527886e0f7030069857d2e4169ee7"

	s, _ := newTestService(t)
	_, err := s.Balance(context.Background(), address)
	assert.ErrorIs(t, err, core.ErrChainUnavailable)

	s, _ = newTestService(t, WithBalanceReader(fixedBalance(decimal.RequireFromString("1.5"))))
	balance, err := s.Balance(context.Background(), address)
	require.NoError(t, err)
	assert.Equal(t, "1.5", balance.String())

	_, err = s.Balance(context.Background(), "0x12")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}
