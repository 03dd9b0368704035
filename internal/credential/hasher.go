package credential

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// Hasher derives a hex digest from a password and its salt. A store must use
// the same Hasher for its whole lifetime.
type Hasher interface {
	Hash(password, salt string) string
}

// SHA256Hasher digests password||salt with a single SHA-256 pass. This is the
// on-disk format of existing password files.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// PBKDF2Hasher stretches the password with PBKDF2-HMAC-SHA256.
type PBKDF2Hasher struct {
	Iterations int
}

const defaultPBKDF2Iterations = 210_000

func (h PBKDF2Hasher) Hash(password, salt string) string {
	iter := h.Iterations
	if iter <= 0 {
		iter = defaultPBKDF2Iterations
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), iter, sha256.Size, sha256.New)
	return hex.EncodeToString(key)
}

// HasherByName resolves the hasher configured by name. Unknown names return
// false.
func HasherByName(name string, iterations int) (Hasher, bool) {
	switch name {
	case "", "sha256":
		return SHA256Hasher{}, true
	case "pbkdf2":
		return PBKDF2Hasher{Iterations: iterations}, true
	default:
		return nil, false
	}
}
