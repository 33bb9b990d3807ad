package utils

import (
	"CloudHunter/config"
	"crypto/tls"
	"errors"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// SMTPMailer sends account mail through the configured SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     string
	User     string
	Pass     string
	From     string
	TLS      bool
	StartTLS bool
}

// NewSMTPMailer builds a mailer from configuration.
func NewSMTPMailer(cfg config.Config) *SMTPMailer {
	return &SMTPMailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		TLS:      cfg.SMTPTLS,
		StartTLS: cfg.SMTPStartTLS,
	}
}

// SendResetMail sends the password reset link.
func (m *SMTPMailer) SendResetMail(to, link string) error {
	if m.Host == "" || m.Port == "" || m.User == "" || m.Pass == "" || m.From == "" {
		return errors.New("smtp config missing")
	}

	e := email.NewEmail()
	e.From = m.From
	e.To = []string{to}
	e.Subject = "Reset your CloudHunter password"
	e.HTML = []byte(ResetMailBody(link))

	addr := m.Host + ":" + m.Port
	auth := smtp.PlainAuth("", m.User, m.Pass, m.Host)
	tlsConfig := &tls.Config{ServerName: m.Host}

	if m.TLS || m.Port == "465" {
		return e.SendWithTLS(addr, auth, tlsConfig)
	}
	if m.StartTLS {
		return e.SendWithStartTLS(addr, auth, tlsConfig)
	}
	return e.Send(addr, auth)
}

// ResetMailBody renders the HTML body of the reset mail.
func ResetMailBody(link string) string {
	return `
		<h2>Password reset</h2>
		<p>Click the link below to choose a new password:</p>
		<a href="` + link + `">Reset password</a>
		<p>The link is valid for 10 minutes.</p>
	`
}
