package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spypry/spypry/internal/config"
)

// SMTPSender delivers opt-out letters through the user's own mail account,
// typically Gmail over implicit TLS on port 465.
type SMTPSender struct {
	config config.SMTPConfig
	from   string
}

func NewSMTPSender(cfg config.SMTPConfig, from string) *SMTPSender {
	return &SMTPSender{config: cfg, from: from}
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, msg Message) Result {
	if msg.From == "" {
		msg.From = s.from
	}
	if err := validateMessage(msg); err != nil {
		return Result{Error: err}
	}
	// Reject CRLF in the subject to prevent header injection; the body may
	// contain anything, it is sent after the blank line.
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return Result{Error: fmt.Errorf("subject contains invalid characters")}
	}

	messageID := fmt.Sprintf("<%s@spypry>", uuid.New().String())
	payload := buildMessage(msg, messageID)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var err error
	if s.config.UseTLS {
		err = s.deliverTLS(ctx, addr, msg.From, msg.To, payload)
	} else if s.config.Username != "" {
		// Never hand credentials to a plaintext listener.
		err = fmt.Errorf("SMTP auth requires TLS")
	} else {
		err = smtp.SendMail(addr, nil, msg.From, []string{msg.To}, payload)
	}
	if err != nil {
		return Result{Error: sanitizeSMTPError(err)}
	}
	return Result{Success: true, MessageID: messageID}
}

func buildMessage(msg Message, messageID string) []byte {
	headers := []string{
		"From: " + msg.From,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"Date: " + time.Now().Format(time.RFC1123Z),
		"Message-ID: " + messageID,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + msg.Body)
}

func (s *SMTPSender) deliverTLS(ctx context.Context, addr, from, to string, payload []byte) error {
	dialer := &net.Dialer{Timeout: 30 * time.Second}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{
		ServerName: s.config.Host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("TLS connection failed: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("SMTP handshake failed: %w", err)
	}
	defer client.Close()

	if s.config.Username != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("sender rejected: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("recipient rejected: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data command failed: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("message write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message finalization failed: %w", err)
	}
	return client.Quit()
}

// sanitizeSMTPError keeps credentials and server banners out of user-facing
// error messages.
func sanitizeSMTPError(err error) error {
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "auth"):
		return fmt.Errorf("SMTP authentication failed")
	case strings.Contains(s, "certificate"):
		return fmt.Errorf("TLS certificate error")
	default:
		return fmt.Errorf("SMTP error: check your configuration")
	}
}
