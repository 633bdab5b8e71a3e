package provider

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

// PromptKind identifies what the user is asked to approve
type PromptKind string

const (
	PromptAccounts PromptKind = "accounts"
	PromptSign     PromptKind = "sign"
)

// Prompt describes a request that needs user approval
type Prompt struct {
	Kind    PromptKind
	Account core.Account
	Message core.Challenge
}

// ApproveFunc decides a prompt. Returning false rejects it.
type ApproveFunc func(ctx context.Context, prompt Prompt) bool

// KeyProvider is an in-process wallet holding private keys
type KeyProvider struct {
	keys       map[common.Address]*ecdsa.PrivateKey
	order      []common.Address
	approve    ApproveFunc
	mu         sync.Mutex
	authorized bool
}

var _ ports.Provider = (*KeyProvider)(nil)

// NewKeyProvider creates a wallet for keys. With a nil approve func every
// prompt is accepted and the accounts start out authorized.
func NewKeyProvider(approve ApproveFunc, keys ...*ecdsa.PrivateKey) *KeyProvider {
	p := &KeyProvider{
		keys:       make(map[common.Address]*ecdsa.PrivateKey, len(keys)),
		approve:    approve,
		authorized: approve == nil,
	}
	for _, key := range keys {
		address := crypto.PubkeyToAddress(key.PublicKey)
		if _, ok := p.keys[address]; ok {
			continue
		}
		p.keys[address] = key
		p.order = append(p.order, address)
	}
	return p
}

// LoadKeystore decrypts a keystore JSON file
func LoadKeystore(path, passphrase string) (*ecdsa.PrivateKey, error) {
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}
	key, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore: %w", err)
	}
	return key.PrivateKey, nil
}

// ParseHexKey parses a hex encoded secp256k1 private key, with or without 0x prefix
func ParseHexKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// ListAccounts returns the accounts once they have been authorized
func (p *KeyProvider) ListAccounts(ctx context.Context) ([]core.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authorized {
		return []core.Account{}, nil
	}
	return p.accountList(), nil
}

// RequestAccounts asks for approval and authorizes all accounts
func (p *KeyProvider) RequestAccounts(ctx context.Context) ([]core.Account, error) {
	if p.approve != nil && !p.approve(ctx, Prompt{Kind: PromptAccounts}) {
		return nil, core.ErrUserRejected
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.authorized = true
	return p.accountList(), nil
}

// Sign produces a personal-message signature ("\x19Ethereum Signed Message:\n" prefix)
// with v in {27, 28}, as wallets return it
func (p *KeyProvider) Sign(ctx context.Context, message core.Challenge, account core.Account) (core.Signature, error) {
	key, ok := p.keys[common.HexToAddress(string(account))]
	if !ok {
		return "", fmt.Errorf("unknown account %s", account)
	}

	if p.approve != nil && !p.approve(ctx, Prompt{Kind: PromptSign, Account: account, Message: message}) {
		return "", core.ErrSignRejected
	}

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	return core.Signature(hexutil.Encode(sig)), nil
}

func (p *KeyProvider) accountList() []core.Account {
	list := make([]core.Account, 0, len(p.order))
	for _, address := range p.order {
		list = append(list, core.Account(strings.ToLower(address.Hex())))
	}
	return list
}
