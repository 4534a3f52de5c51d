package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ErrUnsupportedType is returned for uploads that are not images
var ErrUnsupportedType = errors.New("unsupported content type")

// Config holds MinIO connection configuration
type Config struct {
	Endpoint  string
	PublicURL string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStorage stores item photos in one bucket
type MinIOStorage struct {
	client    *minio.Client
	bucket    string
	endpoint  string
	publicURL string
	useSSL    bool
	log       *zap.Logger
}

// NewMinIO connects to MinIO and makes sure the bucket exists and is
// publicly readable
func NewMinIO(ctx context.Context, cfg Config, log *zap.Logger) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		log.Info("📦 Created MinIO bucket", zap.String("bucket", cfg.Bucket))

		if err := client.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
			log.Warn("⚠️ Failed to set bucket policy", zap.Error(err))
		}
	}

	return &MinIOStorage{
		client:    client,
		bucket:    cfg.Bucket,
		endpoint:  cfg.Endpoint,
		publicURL: cfg.PublicURL,
		useSSL:    cfg.UseSSL,
		log:       log.Named("storage"),
	}, nil
}

func publicReadPolicy(bucket string) string {
	return `{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::` + bucket + `/*"]
		}]
	}`
}

// Upload stores an image under key and returns its public URL
func (s *MinIOStorage) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if _, err := ObjectExt(contentType); err != nil {
		return "", err
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	s.log.Debug("object uploaded", zap.String("key", key), zap.Int64("size", size))
	return s.PublicURL(key), nil
}

// Delete removes an object
func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// PublicURL returns the public URL for an object
func (s *MinIOStorage) PublicURL(key string) string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.publicURL, "/"), s.bucket, key)
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}

// KeyFromURL recovers the object key from a URL built by PublicURL
func (s *MinIOStorage) KeyFromURL(url string) string {
	marker := "/" + s.bucket + "/"
	if i := strings.Index(url, marker); i >= 0 {
		return url[i+len(marker):]
	}
	return path.Base(url)
}

// ObjectExt returns the file extension for an accepted image content type
func ObjectExt(contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
}
