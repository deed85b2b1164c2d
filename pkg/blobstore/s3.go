package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client is the subset of the S3 API the backend uses. Kept narrow so
// tests can substitute a mock.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config contains configuration for the S3 backend.
type S3Config struct {
	Bucket         string `env:"S3_BUCKET"`
	Region         string `env:"S3_REGION"`
	AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"S3_SECRET_KEY"`
	Endpoint       string `env:"S3_ENDPOINT"`         // Optional: for S3-compatible services
	KeyPrefix      string `env:"S3_BLOB_PREFIX"`      // Prepended to every blob name
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE"` // For S3-compatible services like MinIO
}

// S3Backend stores each blob as one object. S3 has no append primitive, so
// append mode is a read-modify-write; this is race-free only because the
// strand in front of the handle guarantees single-flight access.
type S3Backend struct {
	cfg    S3Config
	client S3Client
}

// S3Option configures an S3Backend.
type S3Option func(*S3Backend)

// WithS3Client sets a custom pre-configured S3 client.
// Useful for testing with mocks.
func WithS3Client(client S3Client) S3Option {
	return func(b *S3Backend) {
		b.client = client
	}
}

// NewS3Backend creates an S3-backed blob backend.
func NewS3Backend(cfg S3Config, opts ...S3Option) *S3Backend {
	b := &S3Backend{cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open builds the S3 client (unless one was injected) and returns a handle
// over the configured bucket. The storage kind and quota are advisory: the
// bucket is always persistent and quota belongs to the bucket policy.
func (b *S3Backend) Open(ctx context.Context, cfg Config) (Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := b.client
	if client == nil {
		if b.cfg.Bucket == "" || b.cfg.Region == "" {
			return nil, fmt.Errorf("%w: bucket and region are required", ErrInvalidConfig)
		}

		awsOptions := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(b.cfg.Region),
		}
		if b.cfg.AccessKeyID != "" && b.cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					b.cfg.AccessKeyID,
					b.cfg.SecretKey,
					"",
				)),
			)
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadAWSConfig, err)
		}

		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if b.cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(b.cfg.Endpoint)
			}
			o.UsePathStyle = b.cfg.ForcePathStyle
		})
	}

	return &s3Handle{client: client, bucket: b.cfg.Bucket, prefix: b.cfg.KeyPrefix}, nil
}

type s3Handle struct {
	client S3Client
	bucket string
	prefix string
}

func (h *s3Handle) Read(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	out, err := h.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(h.prefix + name),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	defer func() { _ = out.Body.Close() }()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToReadFile, err)
	}
	return content, nil
}

func (h *s3Handle) Write(ctx context.Context, name string, content []byte, mode WriteMode) error {
	if err := validateName(name); err != nil {
		return err
	}

	switch mode {
	case ModeOverwrite:
	case ModeAppend:
		existing, err := h.Read(ctx, name)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		content = append(existing, content...)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(h.prefix + name),
		Body:   bytes.NewReader(content),
	})
	return err
}

func isNoSuchKey(err error) bool {
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &noSuchKey)
}
