// Package credential abstracts password hashing so the identity service never
// sees plaintext handling details. The hash output is opaque to callers.
package credential

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a plaintext secret into an opaque hash.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// BcryptHasher is the production hasher.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash credential: %w", err)
	}
	return string(out), nil
}

// Compare checks a plaintext secret against a stored hash.
func (h *BcryptHasher) Compare(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
