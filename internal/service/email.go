package service

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/studyweave/studyweave/internal/config"
)

// Emailer sends a plain-text email. Implementations must treat failures as
// their caller does: every send in this codebase is best-effort and happens
// after the triggering write has committed.
type Emailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewEmailer picks the SMTP sender when a host is configured and the
// console-logging fallback otherwise, so development setups work without a
// mail server.
func NewEmailer(cfg config.SMTP, logger *slog.Logger) Emailer {
	if cfg.Host == "" {
		logger.Warn("SMTP_HOST not set, emails will be logged instead of sent")
		return &logEmailer{logger: logger}
	}
	return &smtpEmailer{cfg: cfg, logger: logger}
}

type smtpEmailer struct {
	cfg    config.SMTP
	logger *slog.Logger
}

func (e *smtpEmailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(e.cfg.From); err != nil {
		return fmt.Errorf("email: invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("email: invalid to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(e.cfg.Host,
		gomail.WithPort(e.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(e.cfg.User),
		gomail.WithPassword(e.cfg.Pass),
	)
	if err != nil {
		return fmt.Errorf("email: creating smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("email: sending to %s: %w", to, err)
	}
	return nil
}

// logEmailer is the console fallback: the message is written to the log at
// info level and the send always "succeeds".
type logEmailer struct {
	logger *slog.Logger
}

func (e *logEmailer) Send(_ context.Context, to, subject, body string) error {
	e.logger.Info("email (console fallback)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
