package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

// RPCProvider talks to a wallet over JSON-RPC using the EIP-1193 method set
type RPCProvider struct {
	client *rpc.Client
}

var (
	_ ports.Provider     = (*RPCProvider)(nil)
	_ ports.LegacySigner = (*RPCProvider)(nil)
)

// Dial connects to the wallet endpoint at url
func Dial(ctx context.Context, url string) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrProviderUnavailable, err)
	}
	return NewRPCProvider(client), nil
}

// NewRPCProvider wraps an existing RPC client
func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{client: client}
}

// ListAccounts calls eth_accounts
func (p *RPCProvider) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return p.accounts(ctx, "eth_accounts")
}

// RequestAccounts calls eth_requestAccounts, which may prompt the user
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]core.Account, error) {
	return p.accounts(ctx, "eth_requestAccounts")
}

func (p *RPCProvider) accounts(ctx context.Context, method string) ([]core.Account, error) {
	var addresses []string
	if err := p.client.CallContext(ctx, &addresses, method); err != nil {
		return nil, classifyAccounts(err)
	}

	accounts := make([]core.Account, 0, len(addresses))
	for _, address := range addresses {
		accounts = append(accounts, core.Account(strings.ToLower(address)))
	}
	return accounts, nil
}

// Sign calls personal_sign with params [data, address]
func (p *RPCProvider) Sign(ctx context.Context, message core.Challenge, account core.Account) (core.Signature, error) {
	return p.sign(ctx, "personal_sign", hexutil.Encode([]byte(message)), string(account))
}

// LegacySign calls eth_sign with params [address, data]
func (p *RPCProvider) LegacySign(ctx context.Context, message core.Challenge, account core.Account) (core.Signature, error) {
	return p.sign(ctx, "eth_sign", string(account), hexutil.Encode([]byte(message)))
}

func (p *RPCProvider) sign(ctx context.Context, method string, args ...interface{}) (core.Signature, error) {
	var signature string
	if err := p.client.CallContext(ctx, &signature, method, args...); err != nil {
		return "", classifySign(err)
	}
	if signature == "" {
		return "", fmt.Errorf("%s returned an empty signature", method)
	}
	return core.Signature(signature), nil
}

// Close closes the underlying connection
func (p *RPCProvider) Close() {
	p.client.Close()
}
