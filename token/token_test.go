package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenExpiryBoundary(t *testing.T) {
	tok, err := NewAccessToken(time.Hour, ScopeJR)
	require.NoError(t, err)
	require.True(t, tok.SelfExpires())

	at := tok.ExpiresAt
	assert.False(t, tok.Expired(at), "token is still valid at its expiry instant")
	assert.True(t, tok.Expired(at.Add(time.Second)))
	assert.False(t, tok.Expired(at.Add(-time.Second)))
}

func TestRefreshTokenNeverExpires(t *testing.T) {
	tok, err := NewRefreshToken(ScopeJR)
	require.NoError(t, err)

	assert.False(t, tok.SelfExpires())
	assert.Equal(t, int64(0), tok.ExpiresAt.Unix())
	assert.False(t, tok.Expired(time.Now()))
	assert.False(t, tok.Expired(time.Now().Add(100*365*24*time.Hour)))
}

func TestAccessTokenExpirySecondPrecision(t *testing.T) {
	tok, err := NewAccessToken(8*time.Hour, ScopeWC)
	require.NoError(t, err)

	// The wire format carries whole seconds only.
	assert.Zero(t, tok.ExpiresAt.Nanosecond())
	assert.Len(t, tok.Entropy, EntropySize)
}
