// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Config carries SMTP delivery settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// From is the sender address. Empty means Username.
	From string

	// AppName appears in the mail body and the From display name.
	AppName string
}

// SMTPSender delivers mail over SMTP with PLAIN auth. Transient delivery
// failures are retried with exponential backoff.
type SMTPSender struct {
	cfg    Config
	logger *slog.Logger
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp port %d is out of range", cfg.Port)
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp sender address is required")
	}
	if cfg.AppName == "" {
		cfg.AppName = "Authcore"
	}
	return &SMTPSender{cfg: cfg, logger: slog.Default()}, nil
}

// WithLogger replaces the sender logger. Returns the sender for chaining.
func (s *SMTPSender) WithLogger(logger *slog.Logger) *SMTPSender {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// SendResetEmail renders the password reset mail and delivers it to toEmail.
func (s *SMTPSender) SendResetEmail(ctx context.Context, toEmail, resetLink string) error {
	body, err := renderResetEmail(toEmail, resetLink, s.cfg.AppName)
	if err != nil {
		return err
	}

	msg := buildMessage(s.cfg.From, s.cfg.AppName, toEmail, "Password Reset Request", body)
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	s.logger.InfoContext(ctx, "sending reset email", "to", toEmail)

	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := smtp.SendMail(addr, auth, s.cfg.From, []string{toEmail}, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("operation", "send reset email").
			With("host", s.cfg.Host).
			Wrap(err)
	}
	return nil
}

// buildMessage assembles an RFC 5322 message with an HTML body.
func buildMessage(from, fromName, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}
