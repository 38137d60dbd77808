// Package storage hands out presigned upload URLs for user media.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"kidney-story/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// DefaultPresignExpiry is used when the configuration leaves the expiry unset.
const DefaultPresignExpiry = time.Hour

// PresignedUpload tells a client where to PUT an object and where it will be
// readable afterwards.
type PresignedUpload struct {
	ObjectName string    `json:"object_name"`
	UploadURL  string    `json:"presigned_url"`
	PublicURL  string    `json:"public_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ObjectStore is the upload collaborator used by the service layer.
type ObjectStore interface {
	PresignUpload(ctx context.Context, objectName string) (*PresignedUpload, error)
}

// MinioStore implements ObjectStore on an S3-compatible MinIO bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	public url.URL
	logger *zap.Logger
}

// NewMinioStore creates a client for cfg. It does not contact the server;
// call EnsureBucket on startup. With a region configured, presigning is
// computed locally.
func NewMinioStore(cfg config.StorageConfig, logger *zap.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		expiry: expiry,
		public: url.URL{Scheme: scheme, Host: cfg.Endpoint},
		logger: logger,
	}, nil
}

// EnsureBucket creates the bucket with an anonymous read policy when it does
// not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	if err := s.client.SetBucketPolicy(ctx, s.bucket, PublicReadPolicy(s.bucket)); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}

	s.logger.Info("Created upload bucket", zap.String("bucket", s.bucket))
	return nil
}

func (s *MinioStore) PresignUpload(ctx context.Context, objectName string) (*PresignedUpload, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, objectName, s.expiry)
	if err != nil {
		s.logger.Error("Failed to presign upload",
			zap.String("object", objectName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &PresignedUpload{
		ObjectName: objectName,
		UploadURL:  u.String(),
		PublicURL:  s.ObjectURL(objectName),
		ExpiresAt:  time.Now().Add(s.expiry),
	}, nil
}

// ObjectURL is the anonymous read URL of objectName.
func (s *MinioStore) ObjectURL(objectName string) string {
	u := s.public
	u.Path = "/" + s.bucket + "/" + objectName
	return u.String()
}

// PublicReadPolicy grants anonymous s3:GetObject on every object of bucket.
func PublicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}
