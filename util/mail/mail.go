// Package mail sends the plain-text password reset notice over an
// authenticated STARTTLS SMTP session.
package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/pricedesk/pricedesk/config"
)

// ErrNotConfigured is returned before any network activity when the sender
// address or its password is missing.
var ErrNotConfigured = errors.New("mail sender is not configured")

const (
	resetSubject = "【經銷牌價系統】密碼重置通知"
	resetBody    = `您好：

您的系統密碼已重置。

新密碼為：%s

請使用此密碼登入後，盡快修改為您習慣的密碼。
`
	dialTimeout = 30 * time.Second
)

// Sender delivers password reset notices.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, newPassword string) error
}

// SMTPSender sends one message per call through the configured relay.
type SMTPSender struct {
	cfg config.MailConfig
}

// NewSMTPSender returns a sender for the given relay and identity.
func NewSMTPSender(cfg *config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: *cfg}
}

// Configured reports whether the sender identity is complete.
func (s *SMTPSender) Configured() bool {
	return s.cfg.Configured()
}

// SendPasswordReset mails newPassword to the given address. No retry is
// attempted; the caller decides what a failure means.
func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, newPassword string) error {
	if !s.cfg.Configured() {
		return ErrNotConfigured
	}
	msg, err := s.newResetMessage(to, newPassword)
	if err != nil {
		return err
	}
	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Address),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithTimeout(dialTimeout),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send reset mail to %s via %s:%d: %w", to, s.cfg.Host, s.cfg.Port, err)
	}
	return nil
}

func (s *SMTPSender) newResetMessage(to, newPassword string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.Address); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(resetSubject)
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(resetBody, newPassword))
	return msg, nil
}
