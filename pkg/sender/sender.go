package sender

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESSender delivers email through AWS SES. The SMS side is a mock that logs
// instead of calling a gateway.
// TODO: integrate a real SMS provider once one is contracted.
type SESSender struct {
	client    *sesv2.Client
	fromEmail string
}

func NewSESSender(cfg aws.Config, fromEmail string) *SESSender {
	return &SESSender{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
	}
}

func (s *SESSender) SendEmail(ctx context.Context, to, subject, body string) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	return err
}

func (s *SESSender) SendSms(ctx context.Context, to, body string) error {
	slog.InfoContext(ctx, "SMS would be sent (mock)", "to", to, "body_length", len(body))
	return nil
}
