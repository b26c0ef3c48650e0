package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	miniogo "github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Store implements storage.ObjectStore on a MinIO bucket
type Store struct {
	client *miniogo.Client
	bucket string
	logger *zap.Logger
}

// New creates a Store bound to the named bucket
func New(client *miniogo.Client, bucket string, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

// EnsureBucket creates the bucket if it does not exist
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("object bucket created", zap.String("bucket", s.bucket))
	return nil
}

// objectKey builds the org-prefixed object name
func objectKey(orgID uuid.UUID, filename string) string {
	return fmt.Sprintf("%s/%s", orgID, filename)
}

// Put stores an object under the organization's prefix
func (s *Store) Put(ctx context.Context, orgID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) error {
	key := objectKey(orgID, filename)

	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to store object %s: %w", key, err)
	}

	s.logger.Debug("object stored",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int64("size", size))
	return nil
}

// Remove deletes an object. Removing a missing object is not an error.
func (s *Store) Remove(ctx context.Context, orgID uuid.UUID, filename string) error {
	key := objectKey(orgID, filename)

	if err := s.client.RemoveObject(ctx, s.bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}

	s.logger.Debug("object removed",
		zap.String("bucket", s.bucket),
		zap.String("key", key))
	return nil
}

// Stat returns the stored size of the object in bytes
func (s *Store) Stat(ctx context.Context, orgID uuid.UUID, filename string) (int64, error) {
	key := objectKey(orgID, filename)

	info, err := s.client.StatObject(ctx, s.bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return info.Size, nil
}
