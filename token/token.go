// Package token defines the self-describing access and refresh tokens used
// by the session subsystem: a single tagged value type, two constructor
// presets, and a strict opaque wire codec. Tokens carry no signature;
// every presented token must match a value stored server-side, so the
// codec only has to be lossless and strictly validated.
package token

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Type discriminates the two token roles.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Scope is the service audience a token is valid for.
type Scope string

const (
	// ScopeJR is the primary registrar service.
	ScopeJR Scope = "jr"
	// ScopeWC is the secondary sites service.
	ScopeWC Scope = "wc"
)

// EntropySize is the per-token random identifier width in bytes.
const EntropySize = 16

// Token is one issued credential. Type is fixed by the constructor that
// produced it and never mutated afterwards.
type Token struct {
	Type      Type
	Scope     Scope
	ExpiresAt time.Time
	Entropy   []byte
}

// NewAccessToken mints an access token expiring ttl from now.
func NewAccessToken(ttl time.Duration, scope Scope) (Token, error) {
	return newToken(TypeAccess, scope, time.Now().Add(ttl).Truncate(time.Second))
}

// NewRefreshToken mints a refresh token. Refresh tokens carry the Unix
// epoch zero sentinel instead of an expiry: their lifetime is governed by
// the existence of the session record, and they die by deletion.
func NewRefreshToken(scope Scope) (Token, error) {
	return newToken(TypeRefresh, scope, time.Unix(0, 0))
}

func newToken(typ Type, scope Scope, expiresAt time.Time) (Token, error) {
	entropy := make([]byte, EntropySize)
	if _, err := rand.Read(entropy); err != nil {
		return Token{}, fmt.Errorf("failed to generate token entropy: %w", err)
	}
	return Token{
		Type:      typ,
		Scope:     scope,
		ExpiresAt: expiresAt,
		Entropy:   entropy,
	}, nil
}

// SelfExpires reports whether the token carries its own expiry. Refresh
// tokens do not; their epoch-zero expiry is a sentinel, not a date.
func (t Token) SelfExpires() bool {
	return t.Type == TypeAccess
}

// Expired reports whether the token's own expiry has passed at the given
// instant. Comparisons use the same clock as issuance and tolerate no
// skew: one second past expiry is expired.
func (t Token) Expired(now time.Time) bool {
	return t.SelfExpires() && t.ExpiresAt.Before(now)
}
