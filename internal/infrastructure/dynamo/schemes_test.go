package dynamo

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/govscheme-portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSchemeRepo_Get_Missing_ReturnsNotFound(t *testing.T) {
	api := new(mockAPI)
	repo := NewSchemeRepo(api, "schemes")
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := repo.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSchemeRepo_ListActive_FiltersOnActiveFlag(t *testing.T) {
	api := new(mockAPI)
	repo := NewSchemeRepo(api, "schemes")
	item, _ := attributevalue.MarshalMap(domain.Scheme{SchemeID: "s1", Name: "PM-KISAN", Active: true})
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		v, ok := in.ExpressionAttributeValues[":t"].(*types.AttributeValueMemberBOOL)
		return ok && v.Value && in.ExpressionAttributeNames["#a"] == "active"
	})).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{item}}, nil)

	schemes, err := repo.ListActive(context.Background())

	require.NoError(t, err)
	require.Len(t, schemes, 1)
	assert.Equal(t, "PM-KISAN", schemes[0].Name)
}

func TestSchemeRepo_ListByCategory_QueriesCategoryIndex(t *testing.T) {
	api := new(mockAPI)
	repo := NewSchemeRepo(api, "schemes")
	inactive, _ := attributevalue.MarshalMap(domain.Scheme{SchemeID: "s2", Category: "Agriculture", Active: false})
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		v, ok := in.ExpressionAttributeValues[":c"].(*types.AttributeValueMemberS)
		return *in.IndexName == "category-index" && ok && v.Value == "Agriculture"
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{inactive}}, nil)

	schemes, err := repo.ListByCategory(context.Background(), "Agriculture")

	require.NoError(t, err)
	require.Len(t, schemes, 1)
	assert.False(t, schemes[0].Active)
}
