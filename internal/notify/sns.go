package notify

import (
	"context"
	"fmt"

	"solidarity/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender texts the recipient through Amazon SNS. Phone numbers must be
// in E.164 format.
type SNSSender struct {
	client snsAPI
}

func NewSNSSender(cfg aws.Config) *SNSSender {
	return &SNSSender{client: sns.NewFromConfig(cfg)}
}

func (s *SNSSender) Send(ctx context.Context, n *types.Notification) error {
	if n.Recipient.Phone == "" {
		return ErrNoPhone
	}

	input := &sns.PublishInput{
		Message:     aws.String(ShortText(n)),
		PhoneNumber: aws.String(n.Recipient.Phone),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}

	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("failed to send sms to user %d: %w", n.Recipient.UserID, err)
	}
	return nil
}
