package awsconf

import (
	"context"
	"testing"

	"github.com/govscheme-portal/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_StaticCredentials(t *testing.T) {
	cfg := &config.Config{AWSAccessKeyID: "AKIDLOCAL", AWSSecretKey: "secret"}

	awsCfg, err := Load(context.Background(), cfg, "ap-south-1")
	require.NoError(t, err)

	assert.Equal(t, "ap-south-1", awsCfg.Region)
	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDLOCAL", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}

func TestEndpoint(t *testing.T) {
	assert.Nil(t, Endpoint(&config.Config{}))

	ep := Endpoint(&config.Config{AWSEndpointURL: "http://localhost:4566"})
	require.NotNil(t, ep)
	assert.Equal(t, "http://localhost:4566", *ep)
}
