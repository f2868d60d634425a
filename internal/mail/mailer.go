// Package mail delivers outbound email. The auth service sends exactly
// one message per login-code issuance, awaits the result, and never
// retries; delivery failure surfaces to the caller as a server error.
package mail

import "context"

// Message is one outbound email.
type Message struct {
	Subject              string
	RecipientAddress     string
	RecipientDisplayName string
	BodyPlain            string
	BodyHTML             string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}
