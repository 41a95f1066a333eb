// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net/mail"
	"net/smtp"

	"github.com/dalemusser/pharmausage/internal/app/system/htmlsanitize"
	"github.com/jordan-wright/email"
	"go.uber.org/zap"
)

// Email is a rendered message. To is set by the caller.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Text returns TextBody, or a plain-text rendering of HTMLBody when no
// text body was given.
func (e Email) Text() string {
	if e.TextBody != "" || e.HTMLBody == "" {
		return e.TextBody
	}
	return htmlsanitize.PlainText(e.HTMLBody)
}

// Sender delivers an Email.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

// Config holds SMTP settings. An empty Host selects the log-only sender.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// New returns an SMTP sender, or a LogSender when no host is configured.
func New(cfg Config, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		logger.Warn("mail_smtp_host not set; emails will be logged, not sent")
		return &LogSender{log: logger}
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{
		cfg:  cfg,
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		log:  logger,
	}
}

// Mailer sends through an SMTP relay with PLAIN auth.
type Mailer struct {
	cfg  Config
	addr string
	log  *zap.Logger
}

// Send delivers msg. The SMTP client has no context support, so ctx is
// only checked before dialing.
func (m *Mailer) Send(ctx context.Context, msg Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := m.build(msg)

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	if err := e.Send(m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}
	m.log.Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (m *Mailer) build(msg Email) *email.Email {
	e := email.NewEmail()
	from := m.cfg.From
	if from == "" {
		from = m.cfg.User
	}
	if m.cfg.FromName != "" {
		from = (&mail.Address{Name: m.cfg.FromName, Address: from}).String()
	}
	e.From = from
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Text())
	if msg.HTMLBody != "" {
		e.HTML = []byte(msg.HTMLBody)
	}
	return e
}

// LogSender writes emails to the log instead of sending them. Used in
// development when no SMTP host is configured.
type LogSender struct {
	log *zap.Logger
}

func (s *LogSender) Send(_ context.Context, msg Email) error {
	s.log.Info("email (not sent)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text()))
	return nil
}
