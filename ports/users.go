package ports

import (
	"context"

	"github.com/layer-3/walletgate/core"
)

// UserRepository stores wallet users, keyed by lowercase wallet address
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*core.User, error)
	GetByAddress(ctx context.Context, address string) (*core.User, error)
	Create(ctx context.Context, user *core.User) error
	Update(ctx context.Context, user *core.User) error
}
