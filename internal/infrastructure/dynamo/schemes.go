package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/govscheme-portal/internal/domain"
)

// SchemeRepo provides typed DynamoDB operations for the schemes table.
type SchemeRepo struct {
	client    API
	tableName string
}

func NewSchemeRepo(client API, tableName string) *SchemeRepo {
	return &SchemeRepo{client: client, tableName: tableName}
}

// Put creates or fully replaces a scheme.
func (r *SchemeRepo) Put(ctx context.Context, s *domain.Scheme) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal scheme: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *SchemeRepo) Get(ctx context.Context, schemeID string) (*domain.Scheme, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldSchemeID, schemeID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("scheme not found: %w", domain.ErrNotFound)
	}
	var s domain.Scheme
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListActive returns every scheme whose active flag is set.
func (r *SchemeRepo) ListActive(ctx context.Context) ([]domain.Scheme, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		FilterExpression:         aws.String("#a = :t"),
		ExpressionAttributeNames: map[string]string{"#a": fieldActive},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	var schemes []domain.Scheme
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan schemes: %w", err)
		}
		var batch []domain.Scheme
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		schemes = append(schemes, batch...)
	}
	return schemes, nil
}

// ListByCategory returns every scheme in the category, active or not.
func (r *SchemeRepo) ListByCategory(ctx context.Context, category string) ([]domain.Scheme, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String(indexSchemeCategory),
		KeyConditionExpression:   aws.String("#c = :c"),
		ExpressionAttributeNames: map[string]string{"#c": fieldCategory},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: category},
		},
	})
	var schemes []domain.Scheme
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query schemes by category: %w", err)
		}
		var batch []domain.Scheme
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		schemes = append(schemes, batch...)
	}
	return schemes, nil
}
