// Package mailer sends the mailbox confirmation mail.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"text/template"

	"go.uber.org/zap"
)

// Mailer delivers the confirmation mail for a freshly registered or
// re-requesting account.
type Mailer interface {
	SendConfirmation(ctx context.Context, to, username, token string) error
}

// confirmationTemplate is the full RFC 5322 message, headers included.
var confirmationTemplate = template.Must(template.New("confirmation").Parse(
	"From: {{.From}}\r\n" +
		"To: {{.To}}\r\n" +
		"Subject: Confirm your email\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Hi {{.Username}},\r\n" +
		"\r\n" +
		"thank you for registering with the contacts service. Please confirm\r\n" +
		"your email address by opening the link below:\r\n" +
		"\r\n" +
		"{{.BaseURL}}/api/auth/confirmed_email/{{.Token}}\r\n" +
		"\r\n" +
		"If you did not sign up, you can ignore this mail.\r\n"))

// SMTP sends confirmation mails through a plain SMTP relay.
type SMTP struct {
	addr    string // host:port
	auth    smtp.Auth
	from    string
	baseURL string
	logger  *zap.Logger
}

// NewSMTP creates a mailer that talks to the SMTP server at host:port.
// Username may be empty for relays that accept unauthenticated mail.
func NewSMTP(host string, port int, username, password, from, baseURL string, logger *zap.Logger) *SMTP {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTP{
		addr:    fmt.Sprintf("%s:%d", host, port),
		auth:    auth,
		from:    from,
		baseURL: baseURL,
		logger:  logger.Named("Mailer"),
	}
}

// SendConfirmation renders and delivers the confirmation mail.
func (m *SMTP) SendConfirmation(_ context.Context, to, username, token string) error {
	var body bytes.Buffer
	err := confirmationTemplate.Execute(&body, map[string]string{
		"From":     m.from,
		"To":       to,
		"Username": username,
		"BaseURL":  m.baseURL,
		"Token":    token,
	})
	if err != nil {
		return fmt.Errorf("render confirmation mail: %w", err)
	}
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, body.Bytes()); err != nil {
		return fmt.Errorf("send confirmation mail to %s: %w", to, err)
	}
	m.logger.Info("Confirmation mail sent", zap.String("to", to))
	return nil
}

// Log is a mailer that only logs the confirmation token. It backs the
// development profile and the tests, where no SMTP relay exists.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a log-only mailer.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger.Named("Mailer")}
}

// SendConfirmation logs the mail instead of delivering it.
func (m *Log) SendConfirmation(_ context.Context, to, username, token string) error {
	m.logger.Info("Confirmation mail suppressed (log mailer)",
		zap.String("to", to),
		zap.String("username", username),
		zap.String("token", token),
	)
	return nil
}
