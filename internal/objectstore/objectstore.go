// Package objectstore implements the raw/resampled artifact store on AWS S3,
// including presigned upload and download URLs.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/datakite/resampled/pkg/types"
)

// S3API is the subset of the S3 client used for object transfer.
type S3API interface {
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// PresignAPI is the subset of the S3 presign client used for URL generation.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config holds S3 connection settings.
type Config struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint,omitempty"` // MinIO / LocalStack
}

// Client transfers objects and generates presigned URLs.
type Client struct {
	api       S3API
	presigner PresignAPI
}

// Option configures a Client.
type Option func(*Client)

// WithAPI sets a custom S3 client (useful for testing).
func WithAPI(api S3API) Option {
	return func(c *Client) { c.api = api }
}

// WithPresigner sets a custom presign client (useful for testing).
func WithPresigner(p PresignAPI) Option {
	return func(c *Client) { c.presigner = p }
}

// New creates an S3-backed object store client.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	c := &Client{}
	for _, o := range opts {
		o(c)
	}
	if c.api == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
		c.api = client
		c.presigner = s3.NewPresignClient(client)
	}
	return c, nil
}

// Download fetches an object into dir, named after the key's base name, and
// returns the local path. The caller owns removal of the file.
func (c *Client) Download(ctx context.Context, bucket, key, dir string) (string, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", &types.TransportError{Op: fmt.Sprintf("s3 get %s/%s", bucket, key), Err: err}
	}
	defer func() { _ = out.Body.Close() }()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(key))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, out.Body); err != nil {
		_ = os.Remove(path)
		return "", &types.TransportError{Op: fmt.Sprintf("s3 download %s/%s", bucket, key), Err: err}
	}
	return path, nil
}

// Upload stores a local file as an object.
func (c *Client) Upload(ctx context.Context, bucket, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return &types.TransportError{Op: fmt.Sprintf("s3 put %s/%s", bucket, key), Err: err}
	}
	return nil
}

// PresignGet generates a time-bounded download URL for an object.
func (c *Client) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", &types.TransportError{Op: fmt.Sprintf("s3 presign get %s/%s", bucket, key), Err: err}
	}
	return req.URL, nil
}

// PresignPut generates a time-bounded upload URL for an object.
func (c *Client) PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", &types.TransportError{Op: fmt.Sprintf("s3 presign put %s/%s", bucket, key), Err: err}
	}
	return req.URL, nil
}
