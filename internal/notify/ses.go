package notify

import (
	"context"
	"fmt"

	"solidarity/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends notification email through Amazon SES.
type SESSender struct {
	client sesAPI
	from   string
}

func NewSESSender(cfg aws.Config, from string) *SESSender {
	return &SESSender{client: sesv2.NewFromConfig(cfg), from: from}
}

func (s *SESSender) Send(ctx context.Context, n *types.Notification) error {
	if n.Recipient.Email == "" {
		return ErrNoEmail
	}

	msg := Compose(n)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &sestypes.Destination{ToAddresses: []string{n.Recipient.Email}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(msg.Subject)},
				Body:    &sestypes.Body{Text: &sestypes.Content{Data: aws.String(msg.Body)}},
			},
		},
	}
	if n.Accepter.Email != "" {
		input.ReplyToAddresses = []string{n.Accepter.Email}
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to user %d: %w", n.Recipient.UserID, err)
	}
	return nil
}
