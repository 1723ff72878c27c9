// Package storage keeps uploaded profile photos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioStorage writes photos to an S3 compatible bucket and returns their
// public URL.
type MinioStorage struct {
	client  objectPutter
	bucket  string
	baseURL string
	logger  logrus.FieldLogger
}

func NewMinioStorage(ctx context.Context, cfg MinioConfig, logger logrus.FieldLogger) (*MinioStorage, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.WithField("bucket", cfg.Bucket).Info("photo bucket created")
	}

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = client.EndpointURL().String()
	}

	return &MinioStorage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

func (s *MinioStorage) Save(ctx context.Context, _ string, contentType string, body io.Reader, size int64) (string, error) {
	key, err := objectKey(contentType)
	if err != nil {
		return "", err
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s to bucket %s: %w", key, s.bucket, err)
	}

	s.logger.WithFields(logrus.Fields{"bucket": s.bucket, "key": key, "size": info.Size}).Debug("photo uploaded")
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key), nil
}

// ErrUnsupportedType is returned for content types that have no stored
// extension.
var ErrUnsupportedType = errors.New("unsupported photo content type")

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// objectKey names the object after the checked content type. The client
// filename is never used, so the stored extension always matches the bytes.
func objectKey(contentType string) (string, error) {
	ext, ok := photoExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	return "photos/" + uuid.NewString() + ext, nil
}
