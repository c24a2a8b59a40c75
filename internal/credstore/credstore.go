// Package credstore persists backend session credentials between runs so the
// service does not log in on every start.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kitewatch/wind-archive/internal/domain"
)

// ErrNoCredentials is returned when no stored credentials exist.
var ErrNoCredentials = errors.New("no stored credentials")

// Store reads and writes credentials as a JSON file. The file is written
// with 0600 permissions since it holds session secrets.
type Store struct {
	path string
}

// New creates a store backed by the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads stored credentials. Returns ErrNoCredentials when the file does
// not exist or holds credentials missing the mandatory cookies.
func (s *Store) Load() (domain.Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Credentials{}, ErrNoCredentials
		}
		return domain.Credentials{}, fmt.Errorf("read credentials file: %w", err)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return domain.Credentials{}, fmt.Errorf("parse credentials file: %w", err)
	}
	if !creds.Valid() {
		return domain.Credentials{}, ErrNoCredentials
	}
	return creds, nil
}

// Save writes the credentials, creating parent directories as needed.
func (s *Store) Save(creds domain.Credentials) error {
	if !creds.Valid() {
		return errors.New("refusing to store incomplete credentials")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create credentials directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}

// Clear removes stored credentials. Clearing a store that holds none is not
// an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials file: %w", err)
	}
	return nil
}
