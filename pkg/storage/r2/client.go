package r2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/statbricks/mbiz-backend/pkg/config"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

var (
	errAccountIDRequired   = errors.New("r2 account id is required")
	errCredentialsRequired = errors.New("r2 access credentials are required")
	errBucketRequired      = errors.New("r2 bucket is required")
)

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Client stores objects in a Cloudflare R2 bucket through the S3 API.
type Client struct {
	api           objectAPI
	bucket        string
	publicBaseURL string
}

// NewClient initializes the R2 client and verifies bucket access.
func NewClient(ctx context.Context, cfg config.R2Config, logg *logger.Logger) (*Client, error) {
	accountID := strings.TrimSpace(cfg.AccountID)
	if accountID == "" {
		return nil, errAccountIDRequired
	}
	if strings.TrimSpace(cfg.AccessKeyID) == "" || strings.TrimSpace(cfg.SecretAccessKey) == "" {
		return nil, errCredentialsRequired
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errBucketRequired
	}

	// R2 ignores the region but the SDK requires one.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("loading r2 aws config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	client := &Client{
		api:           api,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("r2 health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "r2 client initialized")
	}
	return client, nil
}

// Put uploads an object.
func (c *Client) Put(ctx context.Context, key string, content []byte, contentType string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("object key is required")
	}
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("uploading object %q: %w", key, err)
	}
	return nil
}

// Get retrieves an object. The caller must close the returned reader.
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching object %q: %w", key, err)
	}
	return out.Body, nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting object %q: %w", key, err)
	}
	return nil
}

// PublicURL returns the serving URL for a stored key, if a public base is configured.
func (c *Client) PublicURL(key string) string {
	if c.publicBaseURL == "" || key == "" {
		return ""
	}
	return c.publicBaseURL + "/" + strings.TrimLeft(key, "/")
}

// Ping verifies bucket access.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errors.New("r2 client not initialized")
	}
	if _, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("checking bucket %q: %w", c.bucket, err)
	}
	return nil
}
