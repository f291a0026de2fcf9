package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"cv-builder/internal/config"
)

// PhotoStore keeps uploaded profile photos in object storage. Objects
// are keyed per user so a re-upload replaces the previous photo.
type PhotoStore struct {
	client *minio.Client
	bucket string
}

func NewPhotoStore(ctx context.Context, cfg config.MinIOConfig) (*PhotoStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &PhotoStore{client: client, bucket: cfg.Bucket}, nil
}

func objectName(userID uuid.UUID) string {
	return "photos/" + userID.String()
}

// Put stores the photo bytes and returns the object name.
func (s *PhotoStore) Put(ctx context.Context, userID uuid.UUID, data []byte, contentType string) (string, error) {
	name := objectName(userID)
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	return name, nil
}

// Get fetches the stored photo for a user.
func (s *PhotoStore) Get(ctx context.Context, userID uuid.UUID) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName(userID), minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("fetch photo: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("read photo: %w", err)
	}
	stat, err := obj.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("stat photo: %w", err)
	}
	return data, stat.ContentType, nil
}
