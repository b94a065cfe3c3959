package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/hoangkimbao/garage-backend/pkg/config"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
)

// Mailer delivers transactional email. Callers treat delivery as best-effort.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer builds an SMTP mailer from config. With no host configured it
// returns a no-op mailer so local environments work without an SMTP server.
func NewMailer(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" {
		return noopMailer{}
	}
	return &smtpMailer{cfg: cfg}
}

type noopMailer struct{}

func (noopMailer) Send(context.Context, string, string, string) error { return nil }

type smtpMailer struct {
	cfg config.SMTPConfig
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send mail")
	}
	return nil
}
