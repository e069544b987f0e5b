package notify

import (
	"context"
	"fmt"

	"solidarity/pkg/types"

	"gopkg.in/gomail.v2"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer mailDialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	if from == "" {
		from = username
	}

	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, n *types.Notification) error {
	if n.Recipient.Email == "" {
		return ErrNoEmail
	}

	msg := Compose(n)

	mailer := gomail.NewMessage()
	mailer.SetHeader("From", s.from)
	mailer.SetHeader("To", n.Recipient.Email)
	mailer.SetHeader("Subject", msg.Subject)
	if n.Accepter.Email != "" {
		mailer.SetHeader("Reply-To", n.Accepter.Email)
	}
	mailer.SetBody("text/plain", msg.Body)

	// gomail has no context support; give up waiting once ctx expires
	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(mailer)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email to user %d: %w", n.Recipient.UserID, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
