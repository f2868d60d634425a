package echo

import (
	"regexp"
	"strings"
	"unicode"
)

const loginCodeLength = 8

// Deliverability is verified by the login-code flow anyway, so the email
// check only needs to reject obvious garbage.
var emailRegex = regexp.MustCompile(`^[^@]+@[^@]+$`)

func validEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// validPronouns accepts an empty value, or two or three non-empty
// slash-separated parts, e.g. "they/them" or "they/them/theirs".
func validPronouns(pronouns string) bool {
	if pronouns == "" {
		return true
	}
	parts := strings.Split(pronouns, "/")
	if len(parts) != 2 && len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// validPassword enforces the password policy: at least 8 characters with
// two uppercase, three lowercase, two digits and one special character.
func validPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit, special int
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		case unicode.IsDigit(r):
			digit++
		case strings.ContainsRune(`!@#$%^&*()-_+.§½?\/`, r):
			special++
		}
	}
	return upper >= 2 && lower >= 3 && digit >= 2 && special >= 1
}
