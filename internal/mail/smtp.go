// Mailer interface and SMTP implementation for out-of-band OTP delivery.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Notifier delivers a one-time code to an account's email address. The
// plaintext code never travels anywhere else.
type Notifier interface {
	SendOTP(ctx context.Context, email, code string) error
}

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
}

// SMTPMailer sends OTP mail over implicit-TLS SMTP (port 465 style).
// Works with any SMTP provider: Gmail, SES, Mailpit for local dev.
type SMTPMailer struct {
	cfg Config
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, email, code string) error {
	subject := "Verify your account with OTP."
	body := strings.ReplaceAll(otpEmailTemplate, "{{OTP_CODE}}", code)

	msg := strings.Join([]string{
		"From: " + m.cfg.Username,
		"To: " + email,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: m.cfg.Host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(m.cfg.Username); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(email); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		writer.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}

	return client.Quit()
}

// NopMailer discards outbound mail. Used when SMTP is not configured,
// e.g. local development without a relay.
type NopMailer struct{}

func (NopMailer) SendOTP(context.Context, string, string) error { return nil }
