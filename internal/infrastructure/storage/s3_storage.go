// Package storage keeps uploaded document payloads in object storage so
// entity snapshots only carry references.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/infrastructure/config"
)

var _ shared.DocumentStore = (*S3DocumentStore)(nil)

// S3DocumentStore stores documents in any S3-compatible bucket (AWS S3, MinIO, RustFS).
type S3DocumentStore struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	presignTTL    time.Duration
	logger        *zap.Logger
}

// S3Option configures an S3DocumentStore
type S3Option func(*S3DocumentStore)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) S3Option {
	return func(s *S3DocumentStore) {
		s.logger = logger
	}
}

// NewS3DocumentStore creates a store from the storage configuration.
func NewS3DocumentStore(ctx context.Context, cfg config.StorageConfig, opts ...S3Option) (*S3DocumentStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("storage credentials are required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := &S3DocumentStore{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		presignTTL:    cfg.PresignTTL,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.presignTTL <= 0 {
		store.presignTTL = 15 * time.Minute
	}
	return store, nil
}

// ObjectKey builds "<prefix>/<slot>/<filename>" with unsafe path segments neutralised.
func ObjectKey(prefix, slot, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document"
	}
	return strings.Trim(prefix, "/") + "/" + slot + "/" + name
}

// Put uploads the inline content of doc and returns the stored reference.
func (s *S3DocumentStore) Put(ctx context.Context, prefix, slot string, doc document.Document) (document.Document, error) {
	raw, err := doc.Decode()
	if err != nil {
		return doc, err
	}
	if raw == nil {
		return doc, nil
	}

	key := ObjectKey(prefix, slot, doc.Filename)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(raw),
		ContentLength: aws.Int64(int64(len(raw))),
		ContentType:   aws.String(doc.MediaType()),
	})
	if err != nil {
		return doc, fmt.Errorf("failed to upload %s: %w", key, err)
	}
	s.logger.Debug("document stored", zap.String("key", key), zap.Int("size", len(raw)))

	doc.StorageKey = key
	doc.Size = len(raw)
	doc.Content = ""
	return doc, nil
}

// Fetch downloads a stored document, or decodes it when still inline.
func (s *S3DocumentStore) Fetch(ctx context.Context, doc document.Document) ([]byte, error) {
	if doc.StorageKey == "" {
		return doc.Decode()
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(doc.StorageKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("document %s not found in storage", doc.StorageKey)
		}
		return nil, fmt.Errorf("failed to download %s: %w", doc.StorageKey, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// DownloadURL returns a presigned GET URL for a stored document.
func (s *S3DocumentStore) DownloadURL(ctx context.Context, storageKey string) (string, error) {
	if storageKey == "" {
		return "", errors.New("storage key is required")
	}
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", storageKey, err)
	}
	return req.URL, nil
}

// EnsureBucket creates the bucket on startup when it does not exist.
func (s *S3DocumentStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	s.logger.Info("Creating document bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}
