package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// Message is one outgoing mail with HTML and plain-text bodies.
type Message struct {
	To      string
	Subject string
	HTML    string
	Plain   string
}

// Mailer sends transactional mail.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers through an SMTP relay.
type SMTPMailer struct {
	config config.SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPMailer creates a mailer for cfg.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		config: cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send dials the relay, honoring ctx only before the dial.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gm := gomail.NewMessage()
	if m.config.FromName != "" {
		gm.SetAddressHeader("From", m.config.FromAddress, m.config.FromName)
	} else {
		gm.SetHeader("From", m.config.FromAddress)
	}
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Plain)
	gm.AddAlternative("text/html", msg.HTML)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogMailer records mail instead of sending it. Used when SMTP is not configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("smtp disabled, email not sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// New picks the SMTP mailer when configured and the log mailer otherwise.
func New(cfg config.SMTPConfig, logger *zap.Logger) Mailer {
	if cfg.Enabled() {
		return NewSMTPMailer(cfg)
	}
	return NewLogMailer(logger)
}
