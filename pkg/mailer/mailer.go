package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"greenhouse.org/growersplatform/pkg/logger"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Mailer delivers transactional email. Callers treat failures as non-fatal.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTP(cfg SMTPConfig) Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return &smtpMailer{cfg: cfg, dialer: d}
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mailer: empty recipient")
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.cfg.From)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTMLBody)

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mailer: send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type logMailer struct {
	log *logger.Logger
}

// NewLog is used when SMTP is not configured; it records what would have been sent.
func NewLog(log *logger.Logger) Mailer {
	return &logMailer{log: log}
}

func (m *logMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("email suppressed (smtp not configured)", "subject", msg.Subject)
	return nil
}

// SendBestEffort delivers msg in the background and only logs failures.
func SendBestEffort(m Mailer, log *logger.Logger, msg Message) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.Send(ctx, msg); err != nil {
			log.Warn("best-effort email failed", "subject", msg.Subject, "error", err)
		}
	}()
}
