package imagestore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const keyPrefix = "products/"

// Store uploads product images to an S3 compatible bucket
type Store struct {
	s3Client *s3.Client
	bucket   string
	baseURL  string
	logger   *zap.Logger
}

// New builds a client for cfg. A custom endpoint switches to path-style
// addressing so MinIO and similar servers work.
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		s3Client: s3Client,
		bucket:   cfg.Bucket,
		baseURL:  publicBaseURL(cfg),
		logger:   logger,
	}, nil
}

func publicBaseURL(cfg *config.StorageConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(cfg.PublicBaseURL, "/")
	}
	if cfg.Endpoint != "" {
		return strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// ObjectKey names the object for an uploaded file: products/<product>-<unix ms>-<rand>.<ext>
func ObjectKey(productID uuid.UUID, filename string, now time.Time) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s%s-%d-%s.%s", keyPrefix, productID, now.UnixMilli(), uuid.NewString()[:8], ext)
}

// URL returns the public URL of key
func (s *Store) URL(key string) string {
	return s.baseURL + "/" + key
}

// KeyFromURL reverses URL. ok is false for URLs this store did not issue.
func (s *Store) KeyFromURL(url string) (string, bool) {
	key, found := strings.CutPrefix(url, s.baseURL+"/")
	if !found || !strings.HasPrefix(key, keyPrefix) {
		return "", false
	}
	return key, true
}

// Put uploads body and returns its public URL
func (s *Store) Put(ctx context.Context, productID uuid.UUID, filename, contentType string, body io.Reader) (string, error) {
	key := ObjectKey(productID, filename, time.Now())
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	s.logger.Info("Uploaded product image",
		zap.String("product_id", productID.String()),
		zap.String("key", key))
	return s.URL(key), nil
}

// Delete removes the object behind url. URLs not issued by this store
// (e.g. external links imported by bulk upload) are left alone.
func (s *Store) Delete(ctx context.Context, url string) error {
	key, ok := s.KeyFromURL(url)
	if !ok {
		s.logger.Debug("Skipping delete of external image", zap.String("url", url))
		return nil
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
