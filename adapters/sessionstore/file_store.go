package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

// record is the on-disk form. Data is kept as a string so the payload is
// stored byte for byte instead of being re-encoded.
type record struct {
	Account   core.Account `json:"account"`
	Data      string       `json:"data"`
	Token     string       `json:"token,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// FileStore keeps the client session in a JSON file readable only by the owner
type FileStore struct {
	path string
}

var _ ports.SessionStore = (*FileStore)(nil)

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the session file location under the user config directory
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "walletgate", "session.json"), nil
}

// Save writes the session, replacing any previous one
func (s *FileStore) Save(ctx context.Context, session *core.ClientSession) error {
	payload, err := json.MarshalIndent(record{
		Account:   session.Account,
		Data:      string(session.Data),
		Token:     session.Token,
		CreatedAt: session.CreatedAt,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	// Write then rename; readers never observe a partial file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace session: %w", err)
	}
	return nil
}

// Load reads the stored session
func (s *FileStore) Load(ctx context.Context) (*core.ClientSession, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &core.ClientSession{
		Account:   rec.Account,
		Data:      json.RawMessage(rec.Data),
		Token:     rec.Token,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Clear removes the stored session
func (s *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
