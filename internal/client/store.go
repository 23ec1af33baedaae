package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CredentialStore keeps Credentials in a JSON file so a restarted editor
// stays logged in.
type CredentialStore struct {
	path string
}

func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// DefaultCredentialsPath is ~/.config/wellnesshub/credentials.json, or the
// platform equivalent.
func DefaultCredentialsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "wellnesshub", "credentials.json"), nil
}

// Load returns ok=false when nothing usable is stored.
func (s *CredentialStore) Load() (Credentials, bool, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, false, nil
		}
		return Credentials{}, false, fmt.Errorf("read credentials: %w", err)
	}

	var c Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return Credentials{}, false, fmt.Errorf("decode credentials: %w", err)
	}

	if !c.Valid() || c.User.ID == "" {
		return Credentials{}, false, nil
	}
	return c, true, nil
}

func (s *CredentialStore) Save(c Credentials) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	// write then rename so a crash never leaves half a file behind
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
