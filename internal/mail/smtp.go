package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig holds the SMTP transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ReplyTo  string
}

// SMTPMailer implements Mailer over SMTP.
type SMTPMailer struct {
	client  *gomail.Client
	from    string
	replyTo string
}

// NewSMTPMailer dials nothing up front; the connection is established per
// send.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From, replyTo: cfg.ReplyTo}, nil
}

// Send delivers the message and waits for the transport result.
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	out := gomail.NewMsg()
	if err := out.From(m.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := out.AddToFormat(msg.RecipientDisplayName, msg.RecipientAddress); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	if m.replyTo != "" {
		if err := out.ReplyTo(m.replyTo); err != nil {
			return fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	out.Subject(msg.Subject)
	out.SetBodyString(gomail.TypeTextPlain, msg.BodyPlain)
	out.AddAlternativeString(gomail.TypeTextHTML, msg.BodyHTML)

	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

var _ Mailer = (*SMTPMailer)(nil)
