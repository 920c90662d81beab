package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/proffmusic/proffmusic-backend/pkg/config"
)

// Mailer sends a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type smtpMailer struct {
	cfg config.SMTPConfig
}

// NewSMTPMailer builds the production mailer over the standard SMTP dialer.
func NewSMTPMailer(cfg config.SMTPConfig) (Mailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host required")
	}
	return &smtpMailer{cfg: cfg}, nil
}

func (m *smtpMailer) Send(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.DefaultFrom,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	return smtp.SendMail(addr, auth, m.cfg.DefaultFrom, []string{to}, []byte(msg))
}

// NoopMailer discards messages. Used when SMTP is not configured so local
// environments still complete the pipeline.
type NoopMailer struct{}

func (NoopMailer) Send(context.Context, string, string, string) error { return nil }
