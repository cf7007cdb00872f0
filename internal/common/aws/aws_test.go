package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Tests
// ==========================

func TestMailer_Send(t *testing.T) {
	var got *ses.SendEmailInput
	svc := &MockSESService{
		SendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			got = params
			return &ses.SendEmailOutput{MessageId: awssdk.String("msg-1")}, nil
		},
	}

	id, err := NewMailer(svc, "bot@example.com", "mods@example.com").Send(context.Background(), "New application", "body")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "bot@example.com", *got.Source)
	assert.Equal(t, []string{"mods@example.com"}, got.Destination.ToAddresses)
	assert.Equal(t, "New application", *got.Message.Subject.Data)
}

func TestMailer_SendError(t *testing.T) {
	svc := &MockSESService{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("MessageRejected")
		},
	}

	_, err := NewMailer(svc, "a@b", "c@d").Send(context.Background(), "s", "b")
	assert.ErrorContains(t, err, "MessageRejected")
}

func TestEventPublisher_Publish(t *testing.T) {
	var got *sns.PublishInput
	svc := &MockSNSService{
		PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			got = params
			return &sns.PublishOutput{MessageId: awssdk.String("evt-1")}, nil
		},
	}

	p := NewEventPublisher(svc, "arn:aws:sns:us-east-1:123:decisions")
	id, err := p.Publish(context.Background(), "applicant.decided", map[string]interface{}{"applicantId": 42})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", id)
	assert.Equal(t, "arn:aws:sns:us-east-1:123:decisions", *got.TopicArn)
	assert.Equal(t, "applicant.decided", *got.MessageAttributes["eventType"].StringValue)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(*got.Message), &body))
	assert.Equal(t, float64(42), body["applicantId"])
}

func TestEventPublisher_MarshalError(t *testing.T) {
	p := NewEventPublisher(&MockSNSService{}, "arn")
	_, err := p.Publish(context.Background(), "x", map[string]interface{}{"bad": make(chan int)})
	assert.ErrorContains(t, err, "marshal x event")
}
