package v1

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// keyBytes is the entropy drawn per token key: 20 random bytes, hex-encoded
// to a fixed 40-character key (160 bits).
const keyBytes = 20

// KeyGenerator produces opaque token keys. The services accept the interface
// so tests can substitute a deterministic generator; production wiring always
// uses RandomKeyGenerator.
type KeyGenerator interface {
	Generate() (string, error)
}

// RandomKeyGenerator draws keys from crypto/rand. It takes no seed and
// performs no uniqueness check: the store's unique key constraint is the
// authority, and callers regenerate on a constraint violation.
type RandomKeyGenerator struct{}

// Generate returns a fresh 40-character hex key.
func (RandomKeyGenerator) Generate() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
