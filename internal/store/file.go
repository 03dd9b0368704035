package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFileNames maps document names to the JSON files the bank system has
// always used on disk.
var DefaultFileNames = map[string]string{
	DocPasswords:   "password_file.json",
	DocMatrix:      "access_matrix.json",
	DocSalts:       "passwords_salts.json",
	DocBalances:    "balances_database.json",
	DocPhones:      "phone_numbers.json",
	DocUsersPhones: "users_phones.json",
}

// FileStore keeps each document in its own indented JSON file.
type FileStore struct {
	mu    sync.Mutex
	dir   string
	files map[string]string
}

// NewFileStore builds a file-backed document store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir, files: DefaultFileNames}, nil
}

func (s *FileStore) path(name string) (string, error) {
	file, ok := s.files[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDocument, name)
	}
	return filepath.Join(s.dir, file), nil
}

func (s *FileStore) Load(_ context.Context, name string, dest any) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// Save writes the document to a temporary file and renames it over the old
// one so readers never observe a half-written document.
func (s *FileStore) Save(_ context.Context, name string, value any) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(value, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}
