package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the part of the S3 API used to fetch inputs
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Client reads sample files from an S3-compatible bucket
type S3Client struct {
	client   ObjectGetter
	endpoint string
}

// NewS3Client creates a client for opts. Without a custom endpoint it talks to AWS S3 in opts.Region.
func NewS3Client(ctx context.Context, opts S3Options) (*S3Client, error) {
	loadOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	endpoint := fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	if opts.Endpoint != "" {
		endpoint = opts.Endpoint
	}

	return &S3Client{
		client:   client,
		endpoint: endpoint,
	}, nil
}

// NewS3ClientWith wraps an existing S3 API implementation
func NewS3ClientWith(client ObjectGetter, endpoint string) *S3Client {
	return &S3Client{client: client, endpoint: endpoint}
}

// GetObject returns the object body and its size. The caller closes the body.
func (c *S3Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	result, err := c.client.GetObject(ctx, input)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object s3://%s/%s: %w", bucket, key, err)
	}

	return result.Body, aws.ToInt64(result.ContentLength), nil
}

// GetEndpoint returns the endpoint objects are read from
func (c *S3Client) GetEndpoint() string {
	return c.endpoint
}
