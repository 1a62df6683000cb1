package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"casa-backend/internal/models"
)

// FileStore keeps every account in a single JSON document keyed by user id.
// Saves write a temp file in the same directory and rename it over the
// original, so a crashed write never corrupts prior state.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (map[int64]models.Account, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[int64]models.Account{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var raw map[string]models.Account
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	accounts := make(map[int64]models.Account, len(raw))
	for key, acct := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: bad user id %q", s.path, key)
		}
		acct.UserID = id
		accounts[id] = acct
	}
	return accounts, nil
}

func (s *FileStore) Save(_ context.Context, accounts map[int64]models.Account) error {
	raw := make(map[string]models.Account, len(accounts))
	for id, acct := range accounts {
		raw[strconv.FormatInt(id, 10)] = acct
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
