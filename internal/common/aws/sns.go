// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// EventPublisher writes JSON events to one SNS topic. The event type is also
// set as a message attribute so subscribers can filter on it.
type EventPublisher struct {
	svc      SNSService
	topicARN string
}

func NewEventPublisher(svc SNSService, topicARN string) *EventPublisher {
	return &EventPublisher{svc: svc, topicARN: topicARN}
}

func NewSNSPublisher(cfg awssdk.Config, topicARN string) *EventPublisher {
	return NewEventPublisher(sns.NewFromConfig(cfg), topicARN)
}

func (p *EventPublisher) Publish(ctx context.Context, eventType string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	out, err := p.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(p.topicARN),
		Message:  awssdk.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(eventType),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("sns publish %s: %w", eventType, err)
	}
	return awssdk.ToString(out.MessageId), nil
}
