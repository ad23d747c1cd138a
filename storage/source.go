// Description: This package opens report inputs, either local files or objects in an
// S3-compatible bucket addressed as s3://bucket/key.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const s3Scheme = "s3://"

// S3Options configures the bucket client used for s3:// inputs
type S3Options struct {
	Region          string
	Endpoint        string // Custom endpoint for S3-compatible stores such as R2 or MinIO
	AccessKeyID     string // Static credentials, the default credential chain is used when empty
	SecretAccessKey string
}

// Source opens local paths and s3:// URIs. The S3 client is created on first use.
type Source struct {
	opts S3Options
	log  *zap.Logger

	once     sync.Once
	s3       *S3Client
	s3Err    error
	newS3Cli func(ctx context.Context, opts S3Options) (*S3Client, error)
}

func NewSource(opts S3Options, log *zap.Logger) *Source {
	if log == nil {
		log = zap.NewNop()
	}
	return &Source{
		opts:     opts,
		log:      log,
		newS3Cli: NewS3Client,
	}
}

// ParseS3URI splits s3://bucket/key. ok is false for anything else.
func ParseS3URI(uri string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(uri, s3Scheme) {
		return "", "", false
	}
	bucket, key, found := strings.Cut(strings.TrimPrefix(uri, s3Scheme), "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// Open implements report.Opener
func (s *Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if strings.HasPrefix(name, s3Scheme) {
		bucket, key, ok := ParseS3URI(name)
		if !ok {
			return nil, fmt.Errorf("invalid object URI %q, expected s3://bucket/key", name)
		}
		client, err := s.client(ctx)
		if err != nil {
			return nil, err
		}
		body, size, err := client.GetObject(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		s.log.Debug("Opened object", zap.String("uri", name), zap.String("size", humanize.Bytes(uint64(size))))
		return body, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	if info, err := file.Stat(); err == nil {
		s.log.Debug("Opened file", zap.String("path", name), zap.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	return file, nil
}

func (s *Source) client(ctx context.Context) (*S3Client, error) {
	s.once.Do(func() {
		s.s3, s.s3Err = s.newS3Cli(ctx, s.opts)
		if s.s3Err == nil {
			s.log.Info("Created S3 client", zap.String("endpoint", s.s3.GetEndpoint()))
		}
	})
	return s.s3, s.s3Err
}
