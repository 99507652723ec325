// Package email sends transactional mail and hosts the listener that reacts
// to registration events.
package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"chrometour/internal/platform/config"
)

// Sender delivers a verification mail. The listener depends on this interface
// so tests can swap in a fake transport.
type Sender interface {
	SendVerificationEmail(to, code string) error
}

// SMTPMailer sends mail over an authenticated SSL SMTP session. The From
// address doubles as the authentication user.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a mailer from SMTP config. The dialer connects lazily,
// one session per send.
func NewSMTPMailer(cfg config.SMTP) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.From, cfg.Password)
	dialer.SSL = true
	return &SMTPMailer{dialer: dialer, from: cfg.From}
}

func (m *SMTPMailer) SendVerificationEmail(to, code string) error {
	if m.from == "" || m.dialer.Password == "" {
		return fmt.Errorf("email credentials are not set")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your Chrome Tour Verification Code")

	body := fmt.Sprintf(
		"Hello,\n\n"+
			"Thank you for registering on Chrome Tour.\n"+
			"Your verification code is: %s\n\n"+
			"This code will expire in 10 minutes.\n"+
			"If you did not initiate this request, please ignore this email.\n\n"+
			"Cheers,\n"+
			"The Chrome Tour Team",
		code,
	)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}
