package users

import (
	"context"
	"strings"

	"github.com/hashicorp/go-memdb"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

const table = "users"

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		table: {
			Name: table,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "ID"},
				},
				"address": {
					Name:         "address",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "WalletAddress", Lowercase: true},
				},
			},
		},
	},
}

// MemDBRepository is the in-memory user repository built using hashicorp/go-memdb
type MemDBRepository struct {
	db *memdb.MemDB
}

var _ ports.UserRepository = (*MemDBRepository)(nil)

// NewMemDBRepository creates an empty repository
func NewMemDBRepository() (*MemDBRepository, error) {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}
	return &MemDBRepository{db}, nil
}

// GetByID retrieves a user by its ID
func (repo *MemDBRepository) GetByID(_ context.Context, id string) (*core.User, error) {
	return repo.first("id", id)
}

// GetByAddress retrieves a user by wallet address, case-insensitively
func (repo *MemDBRepository) GetByAddress(_ context.Context, address string) (*core.User, error) {
	return repo.first("address", strings.ToLower(address))
}

// Create inserts a new user; the wallet address must not be taken
func (repo *MemDBRepository) Create(_ context.Context, user *core.User) error {
	txn := repo.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(table, "address", strings.ToLower(user.WalletAddress))
	if err != nil {
		return err
	}
	if existing != nil {
		return core.ErrUserExists
	}

	stored := *user
	if err := txn.Insert(table, &stored); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Update replaces an existing user
func (repo *MemDBRepository) Update(_ context.Context, user *core.User) error {
	txn := repo.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(table, "id", user.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return core.ErrUserNotFound
	}

	stored := *user
	if err := txn.Insert(table, &stored); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// first returns a copy so callers never mutate objects owned by the database
func (repo *MemDBRepository) first(index, value string) (*core.User, error) {
	txn := repo.db.Txn(false)
	obj, err := txn.First(table, index, value)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, core.ErrUserNotFound
	}

	user := *obj.(*core.User)
	return &user, nil
}
