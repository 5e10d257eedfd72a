package mailer

import (
	"context"
	"fmt"

	"github.com/gsoultan/gsmail"
	"github.com/gsoultan/gsmail/smtp"
)

// Config holds SMTP transport and message settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	SSL      bool
	From     string
	To       string
	Subject  string
}

// bodyTemplate formats the notification mail sent to the operations mailbox.
const bodyTemplate = `New contact form submission

Name:  {{.fullName}}
Email: {{.email}}
Phone: {{.phone}}

Message:
{{.reason}}
`

// Mailer sends contact notifications over SMTP.
type Mailer struct {
	sender  gsmail.Sender
	from    string
	to      string
	subject string
}

// New constructs a Mailer with an authenticated SMTP sender.
func New(cfg Config) *Mailer {
	return NewWithSender(smtp.NewSender(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.SSL), cfg)
}

// NewWithSender constructs a Mailer around an existing sender.
func NewWithSender(sender gsmail.Sender, cfg Config) *Mailer {
	return &Mailer{
		sender:  sender,
		from:    cfg.From,
		to:      cfg.To,
		subject: cfg.Subject,
	}
}

// Send dispatches one notification email describing the submission.
// A single synchronous attempt; any transport error is returned to the
// caller, which decides whether it is fatal to the request.
func (m *Mailer) Send(ctx context.Context, fullName, email, phone, reason string) error {
	msg := gsmail.Email{
		From:    m.from,
		To:      []string{m.to},
		Subject: m.subject,
	}
	data := map[string]any{
		"fullName": fullName,
		"email":    email,
		"phone":    phone,
		"reason":   reason,
	}
	if err := msg.SetBody(bodyTemplate, data); err != nil {
		return fmt.Errorf("render mail body: %w", err)
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
