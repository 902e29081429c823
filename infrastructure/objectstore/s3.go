// Package objectstore implements the external blob-store collaborator on S3
// and owns the object key layout the rest of the system emits.
package objectstore

import (
	"context"
	"fmt"
	"time"

	apperrors "famhub-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Store deletes objects by key. Uploads and presigning happen outside this
// service; the data core only ever cleans keys up.
type S3Store struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewS3Store creates an S3Store for one bucket. An empty bucket name disables
// deletion, which local runs use.
func NewS3Store(client *s3.Client, bucket string, logger *zap.Logger) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		logger: logger.Named("s3"),
	}
}

// DeleteObject removes one object. Callers treat failures as best-effort.
func (s *S3Store) DeleteObject(ctx context.Context, key string) error {
	if s.bucket == "" {
		s.logger.Debug("no media bucket configured, skipping object delete", zap.String("object_key", key))
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperrors.Wrapf(err, "failed to delete object %s", key)
	}
	return nil
}

// MediaPictureKey builds the object key for an uploaded picture.
func MediaPictureKey(uploadedAt time.Time, fileName string) string {
	return fmt.Sprintf("media/pictures/%d-%s", uploadedAt.UTC().Unix(), fileName)
}

// MessageAttachmentKey builds the object key for a message attachment.
func MessageAttachmentKey(userID, attachmentID, fileName string) string {
	return fmt.Sprintf("messages/attachments/%s/%s_%s", userID, attachmentID, fileName)
}
