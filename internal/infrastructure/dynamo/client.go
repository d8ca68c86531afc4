package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/govscheme-portal/internal/config"
	"github.com/govscheme-portal/internal/infrastructure/awsconf"
)

// NewClient creates a DynamoDB client, pointed at LocalStack when
// AWS_ENDPOINT_URL is set.
func NewClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconf.Load(ctx, cfg, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = awsconf.Endpoint(cfg)
	}), nil
}
