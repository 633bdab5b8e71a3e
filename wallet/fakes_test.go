package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/layer-3/walletgate/core"
)

type signCall struct {
	method  string
	message core.Challenge
	account core.Account
}

type fakeProvider struct {
	mu sync.Mutex

	listed    []core.Account
	listErr   error
	requested []core.Account
	reqErr    error

	signErr   error
	legacyErr error

	listCalls    int
	requestCalls int
	signCalls    []signCall

	// onCall runs at the start of every provider call
	onCall func()
}

func (p *fakeProvider) hook() {
	if p.onCall != nil {
		p.onCall()
	}
}

func (p *fakeProvider) ListAccounts(ctx context.Context) ([]core.Account, error) {
	p.hook()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	return p.listed, p.listErr
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]core.Account, error) {
	p.hook()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestCalls++
	return p.requested, p.reqErr
}

func (p *fakeProvider) Sign(ctx context.Context, message core.Challenge, account core.Account) (core.Signature, error) {
	p.hook()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signCalls = append(p.signCalls, signCall{"personal_sign", message, account})
	if p.signErr != nil {
		return "", p.signErr
	}
	return core.Signature("0xsig:" + string(message)), nil
}

// legacyProvider also offers the eth_sign call shape
type legacyProvider struct {
	*fakeProvider
}

func (p legacyProvider) LegacySign(ctx context.Context, message core.Challenge, account core.Account) (core.Signature, error) {
	p.hook()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signCalls = append(p.signCalls, signCall{"eth_sign", message, account})
	if p.legacyErr != nil {
		return "", p.legacyErr
	}
	return core.Signature("0xlegacy:" + string(message)), nil
}

type fakeAPI struct {
	mu sync.Mutex

	challenges []core.Challenge
	fetchErr   error
	submitErr  error
	data       json.RawMessage
	token      string
	meData     json.RawMessage

	fetchCalls   int
	submitted    []core.WalletLogin
	registered   []core.WalletRegistration
	logoutTokens []string
	meTokens     []string
	logoutErr    error
}

func (a *fakeAPI) FetchChallenge(ctx context.Context) (core.Challenge, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetchCalls++
	if a.fetchErr != nil {
		return "", a.fetchErr
	}
	if len(a.challenges) > 0 {
		c := a.challenges[0]
		a.challenges = a.challenges[1:]
		return c, nil
	}
	return core.Challenge(fmt.Sprintf("Sign in to Test\nNonce: %032d", a.fetchCalls)), nil
}

func (a *fakeAPI) SubmitLogin(ctx context.Context, req core.WalletLogin) (*core.ClientSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submitted = append(a.submitted, req)
	if a.submitErr != nil {
		return nil, a.submitErr
	}
	return &core.ClientSession{Account: req.WalletAddress, Data: a.data, Token: a.token}, nil
}

func (a *fakeAPI) SubmitRegistration(ctx context.Context, req core.WalletRegistration) (*core.ClientSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.registered = append(a.registered, req)
	if a.submitErr != nil {
		return nil, a.submitErr
	}
	return &core.ClientSession{Account: req.WalletAddress, Data: a.data, Token: a.token}, nil
}

func (a *fakeAPI) Logout(ctx context.Context, token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logoutTokens = append(a.logoutTokens, token)
	return a.logoutErr
}

func (a *fakeAPI) Me(ctx context.Context, token string) (json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.meTokens = append(a.meTokens, token)
	return a.meData, nil
}

var errDiskFull = errors.New("disk full")

type failingSessionStore struct{}

func (failingSessionStore) Save(ctx context.Context, session *core.ClientSession) error {
	return errDiskFull
}

func (failingSessionStore) Load(ctx context.Context) (*core.ClientSession, error) {
	return nil, nil
}

func (failingSessionStore) Clear(ctx context.Context) error {
	return errDiskFull
}
