package services

// PasswordHasher abstracts password credential derivation so the service
// layer stays independent of the KDF choice.
type PasswordHasher interface {
	// Hash derives a digest for the password under a fresh random salt.
	Hash(password string) (hashedPassword, salt []byte, err error)
	// Verify reports whether password matches the stored digest and salt.
	// Implementations must compare in constant time.
	Verify(password string, hashedPassword, salt []byte) bool
}
