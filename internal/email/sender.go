// Package email delivers generated opt-out letters over SMTP. Generation is
// the backend's job; this package only handles the outbound send when the
// user opts to mail the letter directly.
package email

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/spypry/spypry/internal/config"
)

type Message struct {
	To      string
	From    string
	Subject string
	Body    string
}

type Result struct {
	Success   bool
	MessageID string
	Error     error
}

type Sender interface {
	Send(ctx context.Context, msg Message) Result
	Name() string
}

func NewSender(cfg config.EmailConfig) (Sender, error) {
	if cfg.From == "" {
		return nil, fmt.Errorf("email: from address is required")
	}
	return NewSMTPSender(cfg.SMTP, cfg.From), nil
}

// ValidateEmail checks for injection characters and RFC 5322 compliance
func ValidateEmail(email string) error {
	if strings.ContainsAny(email, "\r\n,;") {
		return fmt.Errorf("email contains invalid characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	return nil
}

func validateMessage(msg Message) error {
	if err := ValidateEmail(msg.From); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := ValidateEmail(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	return nil
}
