// Package email delivers account verification messages.
package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/clouds-team/clouds/internal/logging"
)

// Sender delivers a verification message carrying a confirmation link
// and the short numeric code.
type Sender interface {
	SendVerification(ctx context.Context, to string, code string, link string) error
}

// LogSender writes verification messages to the log instead of sending
// them. Used in development and in tests.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendVerification(ctx context.Context, to string, code string, link string) error {
	s.logger.Info(ctx, "verification email", "to", to, "code", code, "link", link)
	return nil
}

// SMTPSender delivers verification messages over plain SMTP.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPSender(host string, port int, from, username, password string) *SMTPSender {
	s := &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
	}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

func (s *SMTPSender) SendVerification(ctx context.Context, to string, code string, link string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Verify your account\r\n\r\n"+
		"Your verification code is %s.\r\n\r\n"+
		"Open the link below to confirm your account:\r\n%s\r\n",
		s.from, to, code, link)

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("error sending verification email: %w", err)
	}
	return nil
}
