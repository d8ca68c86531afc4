package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/govscheme-portal/internal/config"
	"github.com/govscheme-portal/internal/infrastructure/awsconf"
)

// Publisher publishes portal events to a single SNS topic.
type Publisher interface {
	Publish(ctx context.Context, eventType, subject, message string) error
}

type publisher struct {
	client   *sns.Client
	topicARN string
}

// NewPublisher returns a topic publisher, or an error when no topic is configured.
func NewPublisher(ctx context.Context, cfg *config.Config) (Publisher, error) {
	if cfg.SNSTopicARN == "" {
		return nil, fmt.Errorf("SNS_SCHEME_TOPIC_ARN not set")
	}
	awsCfg, err := awsconf.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		o.BaseEndpoint = awsconf.Endpoint(cfg)
	})
	return &publisher{client: client, topicARN: cfg.SNSTopicARN}, nil
}

// Publish sends message with an "event_type" attribute so subscribers can filter.
func (p *publisher) Publish(ctx context.Context, eventType, subject, message string) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
