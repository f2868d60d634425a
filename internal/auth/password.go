package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// KDF parameters. Digests derived with different parameters will never
// verify, so changing these invalidates every stored password.
const (
	pbkdf2Iterations = 100_000
	pbkdf2KeyLength  = 64
	saltLength       = 32
)

// Pbkdf2PasswordHasher derives password digests with PBKDF2-SHA512 under
// a per-user random salt. It satisfies the service layer's PasswordHasher
// interface.
type Pbkdf2PasswordHasher struct {
	Iterations int
}

// NewPbkdf2PasswordHasher creates a hasher. Iteration counts below the
// default are ignored; tests may not weaken the KDF.
func NewPbkdf2PasswordHasher(iterations int) *Pbkdf2PasswordHasher {
	if iterations < pbkdf2Iterations {
		iterations = pbkdf2Iterations
	}
	return &Pbkdf2PasswordHasher{Iterations: iterations}
}

// Hash derives a digest for the password under a fresh random salt.
func (h *Pbkdf2PasswordHasher) Hash(password string) (hashedPassword, salt []byte, err error) {
	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate password salt: %w", err)
	}
	hashedPassword = pbkdf2.Key([]byte(password), salt, h.Iterations, pbkdf2KeyLength, sha512.New)
	return hashedPassword, salt, nil
}

// Verify re-derives the digest under the stored salt and compares in
// constant time.
func (h *Pbkdf2PasswordHasher) Verify(password string, hashedPassword, salt []byte) bool {
	derived := pbkdf2.Key([]byte(password), salt, h.Iterations, pbkdf2KeyLength, sha512.New)
	return subtle.ConstantTimeCompare(derived, hashedPassword) == 1
}
