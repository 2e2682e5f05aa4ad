// Package email delivers rendered notifications over SMTP.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"pwnotify/internal/domain"
)

// Mailer is the transport contract the orchestrator depends on: one Send
// per notified account plus one for the administrator summary, and a
// Ping used as the fail-fast reachability probe before any account work.
type Mailer interface {
	Send(ctx context.Context, msg domain.Message) error
	Ping(ctx context.Context) error
}

// SMTPMailer sends through a single relay. TLSMode is one of "none",
// "starttls", "tls".
type SMTPMailer struct {
	Addr     string // host or host:port; port defaults to 25
	TLSMode  string
	Username string
	Password string
}

func (m *SMTPMailer) hostPort() (string, string) {
	host, port, err := net.SplitHostPort(m.Addr)
	if err != nil {
		return m.Addr, "25"
	}
	return host, port
}

// Ping verifies the relay is reachable and speaking SMTP, then quits.
// No message is submitted.
func (m *SMTPMailer) Ping(ctx context.Context) error {
	client, err := m.connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMailerUnavailable, err)
	}
	defer client.Close()
	if err := client.Noop(); err != nil {
		return fmt.Errorf("%w: noop: %v", domain.ErrMailerUnavailable, err)
	}
	return quit(client)
}

// Send submits one message to the relay.
func (m *SMTPMailer) Send(ctx context.Context, msg domain.Message) error {
	client, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if m.Username != "" {
		host, _ := m.hostPort()
		auth := smtp.PlainAuth("", m.Username, m.Password, host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write([]byte(buildMessage(msg))); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return quit(client)
}

func (m *SMTPMailer) connect(ctx context.Context) (*smtp.Client, error) {
	host, port := m.hostPort()
	addr := net.JoinHostPort(host, port)

	if m.TLSMode == "tls" {
		dialer := &tls.Dialer{Config: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("smtp tls dial: %w", err)
		}
		client, err := smtp.NewClient(conn, host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("smtp client: %w", err)
		}
		return client, nil
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	if m.TLSMode == "starttls" {
		if err := client.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			client.Close()
			return nil, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	return client, nil
}

func quit(client *smtp.Client) error {
	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("smtp quit: %w", err)
	}
	return nil
}

func buildMessage(msg domain.Message) string {
	lines := []string{
		"From: " + msg.From,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		msg.Body,
	}
	return strings.Join(lines, "\r\n")
}
