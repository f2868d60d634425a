package token

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"go.jumpsca.re/runestone/errors"
)

// Wire format, before the outer base64url layer:
//
//	rst1.<type>.<scope>.<unix-expiry>.<base64url-entropy>
//
// The outer layer keeps the string opaque and URL-safe. Decoding is
// strict: every structural defect has its own message, but all of them
// share the Malformed kind so callers can distinguish "malformed" from
// "well-formed but unknown" without parsing text.
const (
	codecMagic = "rst1"
	fieldCount = 5
	fieldSep   = "."
)

// Encode renders the token as its opaque wire string.
func Encode(t Token) string {
	fields := []string{
		codecMagic,
		string(t.Type),
		string(t.Scope),
		strconv.FormatInt(t.ExpiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString(t.Entropy),
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strings.Join(fields, fieldSep)))
}

// String implements fmt.Stringer via Encode.
func (t Token) String() string {
	return Encode(t)
}

// Decode parses an opaque wire string back into a Token. Any input not
// produced by Encode fails with a Malformed error; Decode never panics
// and never returns a partially filled token.
func Decode(s string) (Token, error) {
	if s == "" {
		return Token{}, errors.Malformed("empty token")
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Token{}, errors.Malformed("token is not valid base64url")
	}
	fields := strings.Split(string(raw), fieldSep)
	if len(fields) != fieldCount {
		return Token{}, errors.Malformedf("token has %d fields, want %d", len(fields), fieldCount)
	}
	if fields[0] != codecMagic {
		return Token{}, errors.Malformed("unrecognized token format tag")
	}

	typ := Type(fields[1])
	if typ != TypeAccess && typ != TypeRefresh {
		return Token{}, errors.Malformedf("unknown token type %q", fields[1])
	}
	scope := Scope(fields[2])
	if scope != ScopeJR && scope != ScopeWC {
		return Token{}, errors.Malformedf("unknown token scope %q", fields[2])
	}
	expiry, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Token{}, errors.Malformed("token expiry is not a unix timestamp")
	}
	entropy, err := base64.RawURLEncoding.DecodeString(fields[4])
	if err != nil {
		return Token{}, errors.Malformed("token entropy is not valid base64url")
	}
	if len(entropy) != EntropySize {
		return Token{}, errors.Malformedf("token entropy is %d bytes, want %d", len(entropy), EntropySize)
	}

	return Token{
		Type:      typ,
		Scope:     scope,
		ExpiresAt: time.Unix(expiry, 0),
		Entropy:   entropy,
	}, nil
}
