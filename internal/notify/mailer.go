// Package notify delivers outbound email: contact form copies to the team
// inbox and timeline task reminders to students.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/admitai/admitai-korea/internal/config"
)

// ErrDisabled is returned by the no-op mailer.
var ErrDisabled = errors.New("notify: email notifications are disabled")

// Message is a plain-text email
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer sends messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Enabled() bool
}

// New returns an SMTP mailer when notifications are enabled and an SMTP host
// is configured, and a no-op mailer otherwise.
func New(cfg *config.NotificationsConfig) Mailer {
	if !cfg.Enabled {
		slog.Info("email notifications disabled (notifications.enabled=false)")
		return nopMailer{}
	}
	if cfg.SMTP.Host == "" {
		slog.Info("email notifications disabled (notifications.smtp.host not set)")
		return nopMailer{}
	}
	return &SMTPMailer{cfg: cfg.SMTP}
}

type nopMailer struct{}

func (nopMailer) Send(context.Context, Message) error { return ErrDisabled }
func (nopMailer) Enabled() bool                       { return false }

// SMTPMailer sends mail through the configured SMTP relay.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewSMTPMailer creates a mailer for cfg.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Enabled implements Mailer
func (m *SMTPMailer) Enabled() bool { return true }

// Send delivers msg. net/smtp has no context support, so cancellation is
// only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("notify: message has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := m.compose(msg, time.Now())
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if m.cfg.UseTLS {
		return sendMailTLS(addr, m.cfg.Host, auth, m.cfg.From, msg.To, data)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, msg.To, data); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg Message, now time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// sendMailTLS connects with implicit TLS (SMTPS, port 465). When the TLS dial
// fails it falls back to smtp.SendMail, which upgrades with STARTTLS when the
// server offers it.
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return smtp.SendMail(addr, auth, from, to, msg)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}
