package notify

import (
	"context"
	"errors"

	"solidarity/pkg/types"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoEmail = errors.New("recipient has no email address")
	ErrNoPhone = errors.New("recipient has no phone number")
)

// Sender delivers a single notification over one channel.
type Sender interface {
	Send(ctx context.Context, n *types.Notification) error
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	logger *logrus.Logger
}

func NewLogSender(logger *logrus.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, n *types.Notification) error {
	msg := Compose(n)

	s.logger.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"kind":            n.Kind,
		"recipient_id":    n.Recipient.UserID,
		"assignment_id":   n.AssignmentID,
		"subject":         msg.Subject,
	}).Info(msg.Body)

	return nil
}
