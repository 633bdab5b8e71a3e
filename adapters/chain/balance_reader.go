package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
	"github.com/shopspring/decimal"
)

const etherDecimals = 18

// BalanceReader reads native balances from an Ethereum JSON-RPC node
type BalanceReader struct {
	client *ethclient.Client
}

var _ ports.BalanceReader = (*BalanceReader)(nil)

// Dial connects to the node at url
func Dial(ctx context.Context, url string) (*BalanceReader, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain rpc: %w", err)
	}
	return NewBalanceReader(client), nil
}

// NewBalanceReader wraps an existing client
func NewBalanceReader(client *ethclient.Client) *BalanceReader {
	return &BalanceReader{client: client}
}

// BalanceOf returns the latest balance of address in ether
func (r *BalanceReader) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	if !core.IsValidAddress(address) {
		return decimal.Zero, core.ErrInvalidAddress
	}

	wei, err := r.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return decimal.NewFromBigInt(wei, -etherDecimals), nil
}

// Close releases the underlying connection
func (r *BalanceReader) Close() {
	r.client.Close()
}
