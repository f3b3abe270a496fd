package bulletin

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kentwell/heatplan/internal/config"
)

// Sender delivers bulletins over SMTP with implicit TLS (SMTPS, usually
// port 465).
type Sender struct {
	server   string
	port     int
	from     string
	to       string
	password string
	log      zerolog.Logger
}

// NewSender creates a sender from the configured SMTP settings.
func NewSender(cfg *config.Config, log zerolog.Logger) *Sender {
	return &Sender{
		server:   cfg.SMTPServer,
		port:     cfg.SMTPPort,
		from:     cfg.SenderAddress,
		to:       cfg.ToAddress,
		password: cfg.SMTPPassword,
		log:      log.With().Str("component", "bulletin").Logger(),
	}
}

// Send delivers a plain-text email with the given subject and body.
func (s *Sender) Send(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.server, s.port)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.server})
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	client, err := smtp.NewClient(conn, s.server)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.from, s.password, s.server)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(s.to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}
	if _, err := w.Write([]byte(s.message(subject, body))); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("failed to close SMTP session: %w", err)
	}

	s.log.Info().Str("to", s.to).Str("subject", subject).Msg("Bulletin sent")
	return nil
}

func (s *Sender) message(subject, body string) string {
	headers := []string{
		"From: " + s.from,
		"To: " + s.to,
		"Subject: " + subject,
		"Date: " + time.Now().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" +
		strings.ReplaceAll(body, "\n", "\r\n")
}
