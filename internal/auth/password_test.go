package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashVerify(t *testing.T) {
	hasher := NewPbkdf2PasswordHasher(0)

	hashed, salt, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.Len(t, hashed, pbkdf2KeyLength)
	assert.Len(t, salt, saltLength)

	assert.True(t, hasher.Verify("correct horse battery staple", hashed, salt))
	assert.False(t, hasher.Verify("correct horse battery stapl", hashed, salt))
	assert.False(t, hasher.Verify("", hashed, salt))
}

func TestPasswordHashRejectsTampering(t *testing.T) {
	hasher := NewPbkdf2PasswordHasher(0)

	hashed, salt, err := hasher.Hash("hunter2hunter2")
	require.NoError(t, err)

	flippedHash := append([]byte(nil), hashed...)
	flippedHash[0] ^= 0x01
	assert.False(t, hasher.Verify("hunter2hunter2", flippedHash, salt))

	flippedSalt := append([]byte(nil), salt...)
	flippedSalt[0] ^= 0x01
	assert.False(t, hasher.Verify("hunter2hunter2", hashed, flippedSalt))
}

func TestPasswordHashFreshSaltPerCall(t *testing.T) {
	hasher := NewPbkdf2PasswordHasher(0)

	h1, s1, err := hasher.Hash("same password")
	require.NoError(t, err)
	h2, s2, err := hasher.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, h1, h2)
}

func TestPasswordHasherIterationFloor(t *testing.T) {
	hasher := NewPbkdf2PasswordHasher(10)
	assert.Equal(t, pbkdf2Iterations, hasher.Iterations)
}

func TestGenerateLoginCode(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		code, err := GenerateLoginCode()
		require.NoError(t, err)
		assert.Len(t, code, LoginCodeLength)
		assert.Regexp(t, "^[0-9a-f]{8}$", code)
		seen[code] = struct{}{}
	}
	// 100 draws from a 32-bit space should not all collide.
	assert.Greater(t, len(seen), 90)
}
