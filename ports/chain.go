package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// BalanceReader reads the native token balance of an address
type BalanceReader interface {
	BalanceOf(ctx context.Context, address string) (decimal.Decimal, error)
}
