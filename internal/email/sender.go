// Package email delivers transactional mail over SMTP.
package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Config carries the SMTP connection settings. An empty Host disables
// delivery; Send then logs the mail instead of failing, so environments
// without a relay keep working.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender delivers HTML mail.
type Sender struct {
	cfg    Config
	logger *zap.Logger
	// send is swapped in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSender creates a sender.
func NewSender(cfg Config, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// Configured reports whether a relay is set up.
func (s *Sender) Configured() bool { return s.cfg.Host != "" }

// Send delivers one HTML mail. When no relay is configured the mail is
// logged and dropped.
func (s *Sender) Send(to, subject, bodyHTML string) error {
	if !s.Configured() {
		s.logger.Info("smtp not configured, dropping mail",
			zap.String("to", to),
			zap.String("subject", subject),
		)
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	msg := buildMessage(s.cfg.From, to, subject, bodyHTML)
	if err := s.send(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, bodyHTML string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(bodyHTML)
	b.WriteString("\r\n")
	return []byte(b.String())
}
