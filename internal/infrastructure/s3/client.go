package s3infra

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/govscheme-portal/internal/config"
	"github.com/govscheme-portal/internal/infrastructure/awsconf"
)

// Store wraps S3 operations for scheme documents.
type Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewClient creates an S3 client. Against LocalStack it switches to
// path-style addressing.
func NewClient(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := awsconf.Load(ctx, cfg, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if ep := awsconf.Endpoint(cfg); ep != nil {
			o.BaseEndpoint = ep
			o.UsePathStyle = true
		}
	}), nil
}

// NewStore creates a Store for bucket. Object URLs are path-style under the
// custom endpoint when one is configured, virtual-hosted AWS URLs otherwise.
func NewStore(client *s3.Client, cfg *config.Config) *Store {
	return &Store{client: client, bucket: cfg.S3BucketName, baseURL: bucketURL(cfg)}
}

// Upload streams a document to S3 under key and returns its public URL.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if contentType == "" {
		contentType = detectContentType(key)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return objectURL(s.baseURL, key), nil
}

func bucketURL(cfg *config.Config) string {
	if cfg.AWSEndpointURL != "" {
		return strings.TrimRight(cfg.AWSEndpointURL, "/") + "/" + cfg.S3BucketName
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3BucketName, cfg.AWSRegion)
}

func objectURL(base, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return base + "/" + strings.Join(parts, "/")
}

func detectContentType(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
