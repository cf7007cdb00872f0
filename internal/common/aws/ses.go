// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the slice of the SES client the mailer needs; tests swap it.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Mailer sends plain-text mail from a fixed sender to a fixed recipient.
type Mailer struct {
	svc  SESService
	from string
	to   string
}

func NewMailer(svc SESService, from, to string) *Mailer {
	return &Mailer{svc: svc, from: from, to: to}
}

func NewSESMailer(cfg awssdk.Config, from, to string) *Mailer {
	return NewMailer(ses.NewFromConfig(cfg), from, to)
}

// Send returns the SES message id.
func (m *Mailer) Send(ctx context.Context, subject, body string) (string, error) {
	out, err := m.svc.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{m.to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: awssdk.String(body)},
			},
		},
		Source: awssdk.String(m.from),
	})
	if err != nil {
		return "", fmt.Errorf("ses send email: %w", err)
	}
	return awssdk.ToString(out.MessageId), nil
}
