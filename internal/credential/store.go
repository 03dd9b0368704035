// Package credential owns the salted password digests of every user.
package credential

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/congo-pay/bank_system/internal/apperr"
	"github.com/congo-pay/bank_system/internal/store"
)

// SaltSize is the number of random bytes in a salt before hex encoding.
const SaltSize = 16

var (
	ErrEmptyInput    = fmt.Errorf("%w: username and password must not be empty", apperr.ErrValidation)
	ErrDuplicateUser = fmt.Errorf("%w: username already exists", apperr.ErrConflict)
)

// Store keeps username→salt and username→digest and persists both documents
// on every change.
type Store struct {
	mu      sync.RWMutex
	docs    store.Documents
	hasher  Hasher
	entropy io.Reader
	salts   map[string]string
	digests map[string]string
}

// Option customises a Store.
type Option func(*Store)

// WithHasher replaces the default SHA-256 hasher.
func WithHasher(h Hasher) Option {
	return func(s *Store) { s.hasher = h }
}

// WithEntropy replaces crypto/rand as the salt source. Tests only.
func WithEntropy(r io.Reader) Option {
	return func(s *Store) { s.entropy = r }
}

// Open loads the salts and passwords documents, creating empty ones when they
// are missing.
func Open(ctx context.Context, docs store.Documents, opts ...Option) (*Store, error) {
	s := &Store{
		docs:    docs,
		hasher:  SHA256Hasher{},
		entropy: rand.Reader,
		salts:   map[string]string{},
		digests: map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := store.LoadOrInit(ctx, docs, store.DocSalts, &s.salts, map[string]string{}); err != nil {
		return nil, fmt.Errorf("load salts: %w", err)
	}
	if _, err := store.LoadOrInit(ctx, docs, store.DocPasswords, &s.digests, map[string]string{}); err != nil {
		return nil, fmt.Errorf("load passwords: %w", err)
	}
	// A document stored as JSON null decodes to a nil map.
	if s.salts == nil {
		s.salts = map[string]string{}
	}
	if s.digests == nil {
		s.digests = map[string]string{}
	}
	return s, nil
}

// CreateCredentials salts and hashes password and records it for username.
// Surrounding whitespace is not part of a username.
func (s *Store) CreateCredentials(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.digests[username]; exists {
		return ErrDuplicateUser
	}

	raw := make([]byte, SaltSize)
	if _, err := io.ReadFull(s.entropy, raw); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	salt := hex.EncodeToString(raw)

	s.salts[username] = salt
	s.digests[username] = s.hasher.Hash(password, salt)
	if err := s.persist(ctx); err != nil {
		delete(s.salts, username)
		delete(s.digests, username)
		_ = s.persist(ctx) // best effort: drop whichever document did get written
		return err
	}
	return nil
}

// Verify reports whether password matches the stored digest for username.
// Unknown users simply fail.
func (s *Store) Verify(_ context.Context, username, password string) bool {
	username = strings.TrimSpace(username)
	s.mu.RLock()
	salt, okSalt := s.salts[username]
	digest, okDigest := s.digests[username]
	s.mu.RUnlock()
	if !okSalt || !okDigest {
		return false
	}
	candidate := s.hasher.Hash(password, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(digest)) == 1
}

// Exists reports whether username has credentials.
func (s *Store) Exists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.digests[username]
	return ok
}

// Forget drops the credentials of an aborted registration.
func (s *Store) Forget(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	salt, hadSalt := s.salts[username]
	digest, hadDigest := s.digests[username]
	if !hadSalt && !hadDigest {
		return nil
	}
	delete(s.salts, username)
	delete(s.digests, username)
	if err := s.persist(ctx); err != nil {
		if hadSalt {
			s.salts[username] = salt
		}
		if hadDigest {
			s.digests[username] = digest
		}
		return err
	}
	return nil
}

func (s *Store) persist(ctx context.Context) error {
	if err := s.docs.Save(ctx, store.DocSalts, s.salts); err != nil {
		return fmt.Errorf("persist salts: %w", err)
	}
	if err := s.docs.Save(ctx, store.DocPasswords, s.digests); err != nil {
		return fmt.Errorf("persist passwords: %w", err)
	}
	return nil
}
