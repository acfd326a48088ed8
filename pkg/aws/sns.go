package aws

import (
	"context"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSMessage is one notification. Attributes become String message
// attributes so subscribers can filter on them.
type SNSMessage struct {
	Body       []byte
	Attributes map[string]string
	// GroupID and DeduplicationID apply to FIFO topics only.
	GroupID         string
	DeduplicationID string
}

// SNSPublisher is satisfied by SNSClient.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, msg SNSMessage) (string, error)
}

type SNSClient struct {
	client snsAPI
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg)}
}

// Publish sends msg to topicArn and returns the SNS message id.
func (s *SNSClient) Publish(ctx context.Context, topicArn string, msg SNSMessage) (string, error) {
	if topicArn == "" {
		return "", fmt.Errorf("empty topicArn")
	}

	in := &sns.PublishInput{
		TopicArn: sdkaws.String(topicArn),
		Message:  sdkaws.String(string(msg.Body)),
	}
	if len(msg.Attributes) > 0 {
		in.MessageAttributes = make(map[string]types.MessageAttributeValue, len(msg.Attributes))
		for k, v := range msg.Attributes {
			in.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(v),
			}
		}
	}
	if strings.HasSuffix(topicArn, ".fifo") {
		if msg.GroupID == "" {
			return "", fmt.Errorf("fifo topic %s requires a message group id", topicArn)
		}
		in.MessageGroupId = sdkaws.String(msg.GroupID)
		if msg.DeduplicationID != "" {
			in.MessageDeduplicationId = sdkaws.String(msg.DeduplicationID)
		}
	}

	out, err := s.client.Publish(ctx, in)
	if err != nil {
		return "", fmt.Errorf("sns publish failed for topic %s: %w", topicArn, err)
	}
	return sdkaws.ToString(out.MessageId), nil
}
