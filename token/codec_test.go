package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jumpsca.re/runestone/errors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	scopes := []Scope{ScopeJR, ScopeWC}

	for _, scope := range scopes {
		access, err := NewAccessToken(8*time.Hour, scope)
		require.NoError(t, err)

		decoded, err := Decode(access.String())
		require.NoError(t, err)
		assert.Equal(t, TypeAccess, decoded.Type)
		assert.Equal(t, scope, decoded.Scope)
		assert.Equal(t, access.ExpiresAt.Unix(), decoded.ExpiresAt.Unix())
		assert.Equal(t, access.Entropy, decoded.Entropy)

		refresh, err := NewRefreshToken(scope)
		require.NoError(t, err)

		decoded, err = Decode(refresh.String())
		require.NoError(t, err)
		assert.Equal(t, TypeRefresh, decoded.Type)
		assert.Equal(t, scope, decoded.Scope)
		assert.Equal(t, int64(0), decoded.ExpiresAt.Unix())
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	valid, err := NewAccessToken(time.Hour, ScopeJR)
	require.NoError(t, err)
	validStr := valid.String()

	inner := func(fields ...string) string {
		return base64.RawURLEncoding.EncodeToString([]byte(strings.Join(fields, ".")))
	}
	entropy := base64.RawURLEncoding.EncodeToString(valid.Entropy)

	cases := map[string]string{
		"empty":              "",
		"not base64url":      "not!valid!base64#",
		"random garbage":     base64.RawURLEncoding.EncodeToString([]byte("garbage")),
		"truncated":          validStr[:len(validStr)/2],
		"too few fields":     inner("rst1", "access", "jr", "12345"),
		"too many fields":    inner("rst1", "access", "jr", "12345", entropy, "extra"),
		"wrong magic":        inner("rst2", "access", "jr", "12345", entropy),
		"unknown type":       inner("rst1", "session", "jr", "12345", entropy),
		"unknown scope":      inner("rst1", "access", "xx", "12345", entropy),
		"non-numeric expiry": inner("rst1", "access", "jr", "soon", entropy),
		"bad entropy":        inner("rst1", "access", "jr", "12345", "!!!"),
		"short entropy":      inner("rst1", "access", "jr", "12345", base64.RawURLEncoding.EncodeToString([]byte("tiny"))),
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(input)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindMalformed), "want malformed, got %v", err)
		})
	}
}

func TestDecodeDoesNotAuthenticate(t *testing.T) {
	// A well-formed token decodes fine regardless of whether any session
	// knows it; acceptance is the session store's job.
	forged, err := NewAccessToken(time.Hour, ScopeWC)
	require.NoError(t, err)

	decoded, err := Decode(forged.String())
	require.NoError(t, err)
	assert.Equal(t, ScopeWC, decoded.Scope)
}

func TestEntropyUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		tok, err := NewAccessToken(time.Hour, ScopeJR)
		require.NoError(t, err)
		s := tok.String()
		_, dup := seen[s]
		require.False(t, dup, "duplicate token after %d mints", i)
		seen[s] = struct{}{}
	}
}
