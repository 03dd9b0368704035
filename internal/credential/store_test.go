package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/congo-pay/bank_system/internal/apperr"
	"github.com/congo-pay/bank_system/internal/store"
)

func openStore(t *testing.T, docs store.Documents, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), docs, opts...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestCreateAndVerify(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore())

	if err := s.CreateCredentials(ctx, "alice", "s3cret"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !s.Verify(ctx, "alice", "s3cret") {
		t.Fatalf("expected password to verify")
	}
	for _, wrong := range []string{"", "s3cret ", "S3cret", "s3cre"} {
		if s.Verify(ctx, "alice", wrong) {
			t.Fatalf("expected %q to be rejected", wrong)
		}
	}
	if s.Verify(ctx, "mallory", "s3cret") {
		t.Fatalf("unknown user must not verify")
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore())

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "pw"},
		{"blank username", "   ", "pw"},
		{"empty password", "alice", ""},
		{"blank password", "alice", "\t "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.CreateCredentials(ctx, tc.username, tc.password)
			if !errors.Is(err, ErrEmptyInput) || !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected empty input validation error, got %v", err)
			}
		})
	}
	if s.Exists("alice") {
		t.Fatalf("no credentials should have been stored")
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore())
	if err := s.CreateCredentials(ctx, "alice", "one"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateCredentials(ctx, "alice", "two"); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected duplicate user, got %v", err)
	}
	if !s.Verify(ctx, "alice", "one") {
		t.Fatalf("original password must still verify")
	}
}

func TestSaltsDifferForSamePassword(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore())
	if err := s.CreateCredentials(ctx, "alice", "same"); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if err := s.CreateCredentials(ctx, "bob", "same"); err != nil {
		t.Fatalf("create bob: %v", err)
	}
	if s.salts["alice"] == s.salts["bob"] {
		t.Fatalf("expected distinct salts")
	}
	if s.digests["alice"] == s.digests["bob"] {
		t.Fatalf("expected distinct digests for distinct salts")
	}
	if len(s.salts["alice"]) != SaltSize*2 {
		t.Fatalf("expected %d hex chars of salt, got %d", SaltSize*2, len(s.salts["alice"]))
	}
}

func TestHashIsDeterministic(t *testing.T) {
	h := SHA256Hasher{}
	if h.Hash("pw", "00ff") != h.Hash("pw", "00ff") {
		t.Fatalf("sha256 hasher not deterministic")
	}
	// password and salt are concatenated before hashing: sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := h.Hash("ab", "c"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	p := PBKDF2Hasher{Iterations: 1000}
	if p.Hash("pw", "00ff") != p.Hash("pw", "00ff") {
		t.Fatalf("pbkdf2 hasher not deterministic")
	}
	if p.Hash("pw", "00ff") == h.Hash("pw", "00ff") {
		t.Fatalf("expected hashers to disagree")
	}
}

func TestReopenVerifiesWithStoredSalt(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	entropy := bytes.NewReader(bytes.Repeat([]byte{0xab}, SaltSize))

	first := openStore(t, docs, WithEntropy(entropy), WithHasher(PBKDF2Hasher{Iterations: 1000}))
	if err := first.CreateCredentials(ctx, "alice", "pw"); err != nil {
		t.Fatalf("create: %v", err)
	}

	second := openStore(t, docs, WithHasher(PBKDF2Hasher{Iterations: 1000}))
	if second.salts["alice"] != "abababababababababababababababab" {
		t.Fatalf("unexpected persisted salt %q", second.salts["alice"])
	}
	if !second.Verify(ctx, "alice", "pw") {
		t.Fatalf("expected reopened store to verify")
	}
}

func TestCreateRollsBackOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	faulty := store.NewFaulty(store.NewMemoryStore())
	s := openStore(t, faulty)

	faulty.FailSaves(store.DocPasswords)
	if err := s.CreateCredentials(ctx, "alice", "pw"); !errors.Is(err, store.ErrInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if s.Exists("alice") {
		t.Fatalf("credentials must be rolled back")
	}

	faulty.Heal()
	if err := s.CreateCredentials(ctx, "alice", "pw"); err != nil {
		t.Fatalf("retry after heal: %v", err)
	}
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	s := openStore(t, docs)
	if err := s.CreateCredentials(ctx, "alice", "pw"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Forget(ctx, "alice"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	reopened := openStore(t, docs)
	if reopened.Exists("alice") || reopened.Verify(ctx, "alice", "pw") {
		t.Fatalf("forgotten credentials must not survive reopen")
	}
	if err := s.Forget(ctx, "nobody"); err != nil {
		t.Fatalf("forgetting unknown user should be a no-op: %v", err)
	}
}

func TestHasherByName(t *testing.T) {
	if _, ok := HasherByName("sha256", 0); !ok {
		t.Fatalf("sha256 must resolve")
	}
	if h, ok := HasherByName("pbkdf2", 5); !ok || h.(PBKDF2Hasher).Iterations != 5 {
		t.Fatalf("pbkdf2 must resolve with iterations")
	}
	if _, ok := HasherByName("md5", 0); ok {
		t.Fatalf("md5 must not resolve")
	}
}

func TestOpenToleratesNullDocuments(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	for _, name := range []string{store.DocSalts, store.DocPasswords} {
		if err := docs.Save(ctx, name, json.RawMessage("null")); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	s := openStore(t, docs)
	if err := s.CreateCredentials(ctx, "alice", "pw"); err != nil {
		t.Fatalf("create after null documents: %v", err)
	}
	if !s.Verify(ctx, "alice", "pw") {
		t.Fatalf("expected password to verify")
	}
}

func TestCreateTrimsUsername(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore())
	if err := s.CreateCredentials(ctx, "  alice\t", "pw"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !s.Exists("alice") || s.Exists("  alice\t") {
		t.Fatalf("expected the username to be stored trimmed")
	}
	if !s.Verify(ctx, "alice", "pw") || !s.Verify(ctx, " alice ", "pw") {
		t.Fatalf("expected trimmed and padded names to verify")
	}
	if err := s.CreateCredentials(ctx, "alice ", "other"); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected padded duplicate to be refused, got %v", err)
	}
}
