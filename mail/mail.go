package mail

import (
	"fmt"
	"net/smtp"

	"github.com/azattekce/redischat/config"
	"go.uber.org/zap"
)

// Mailer sends transactional mail (password resets, notifications).
type Mailer interface {
	Send(to, subject, body string) error
}

// New returns an SMTP mailer when the config names a host, otherwise a
// console mailer that logs the message instead of sending it.
func New(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if cfg.SMTPHost == "" || cfg.From == "" {
		logger.Info("smtp not configured, mail will be logged to console")
		return &consoleMailer{logger: logger}
	}
	return &smtpMailer{cfg: cfg, logger: logger}
}

type smtpMailer struct {
	cfg    config.MailConfig
	logger *zap.Logger
}

func (m *smtpMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)

	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.cfg.From, to, subject, body)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		m.logger.Error("smtp send failed",
			zap.String("to", to),
			zap.Error(err))
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

type consoleMailer struct {
	logger *zap.Logger
}

func (m *consoleMailer) Send(to, subject, body string) error {
	m.logger.Info("mail (console)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
