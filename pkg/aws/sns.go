package aws

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/younsl/idlesweep/internal/cloud"
	"github.com/younsl/idlesweep/pkg/utils"
)

// SNSAPI is the subset of the SNS client used by SNSNotifier
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes operator notifications to one topic
type SNSNotifier struct {
	client   SNSAPI
	topicARN string
}

// NewSNSNotifier creates an SNSNotifier for topicARN
func NewSNSNotifier(client SNSAPI, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

// NewSNSNotifierFromConfig creates an SNSNotifier from an AWS config
func NewSNSNotifierFromConfig(cfg aws.Config, topicARN string) *SNSNotifier {
	return NewSNSNotifier(sns.NewFromConfig(cfg), topicARN)
}

// Publish sends the message and returns its message ID
func (n *SNSNotifier) Publish(ctx context.Context, subject, body string) (string, error) {
	if n.topicARN == "" {
		return "", errors.New("no SNS topic configured")
	}
	resp, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
	})
	if err != nil {
		return "", cloud.Wrap("Publish", n.topicARN, err)
	}
	return utils.SafeDeref(resp.MessageId), nil
}
