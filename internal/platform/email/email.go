// Package email delivers notification mail over SMTP.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ems/internal/domain/notifications"
	"ems/internal/platform/config"
)

const dialTimeout = 10 * time.Second

// Message is one plain-text mail.
type Message struct {
	ID      string
	From    string
	To      string
	Subject string
	Body    string
	Date    time.Time
}

// Bytes renders the message in RFC 5322 form with CRLF line endings.
func (m Message) Bytes() []byte {
	var buf bytes.Buffer
	header := func(name, value string) {
		buf.WriteString(name + ": " + strings.NewReplacer("\r", " ", "\n", " ").Replace(value) + "\r\n")
	}
	header("From", m.From)
	header("To", m.To)
	header("Subject", m.Subject)
	header("Date", m.Date.Format(time.RFC1123Z))
	header("Message-ID", "<"+m.ID+"@"+hostPart(m.From)+">")
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(strings.ReplaceAll(m.Body, "\r\n", "\n"), "\n", "\r\n"))
	return buf.Bytes()
}

func hostPart(address string) string {
	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	}
	if _, host, ok := strings.Cut(address, "@"); ok && host != "" {
		return host
	}
	return "localhost"
}

// New returns the mailer the configuration asks for. With delivery disabled
// messages are logged and dropped.
func New(cfg config.Config) notifications.Mailer {
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return discard{}
	}
	return &SMTP{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		StartTLS: cfg.SMTPUseTLS,
	}
}

type discard struct{}

func (discard) Send(ctx context.Context, from, to, subject, body string) error {
	slog.Debug("email disabled, dropping message", "to", to, "subject", subject)
	return nil
}

// SMTP sends through a single relay, one connection per message.
type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	StartTLS bool
}

func (s *SMTP) Send(ctx context.Context, from, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil
	}
	msg := Message{ID: uuid.NewString(), From: from, To: to, Subject: subject, Body: body, Date: time.Now()}
	if err := s.deliver(ctx, msg); err != nil {
		return fmt.Errorf("email: send %q to %s: %w", subject, to, err)
	}
	return nil
}

func (s *SMTP) deliver(ctx context.Context, msg Message) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.Host, strconv.Itoa(s.Port)))
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.StartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if s.User != "" {
		if err := client.Auth(smtp.PlainAuth("", s.User, s.Password, s.Host)); err != nil {
			return err
		}
	}

	steps := []func() error{
		func() error { return client.Mail(msg.From) },
		func() error { return client.Rcpt(msg.To) },
		func() error {
			w, err := client.Data()
			if err != nil {
				return err
			}
			if _, err := w.Write(msg.Bytes()); err != nil {
				_ = w.Close()
				return err
			}
			return w.Close()
		},
		client.Quit,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
