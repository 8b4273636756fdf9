// Package attachments stores issue file uploads in S3-compatible object
// storage and hands back the metadata persisted on the issue document.
package attachments

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"issuetracker/api/internal/store"
)

const presignExpiry = 15 * time.Minute

type Service struct {
	client *minio.Client
	bucket string
	log    zerolog.Logger
}

// New connects to the object store and ensures the bucket exists.
func New(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, log zerolog.Logger) (*Service, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Service{client: client, bucket: bucket, log: log}, nil
}

// Upload streams one file into the bucket under a per-issue prefix and
// returns the attachment metadata to persist on the issue.
func (s *Service) Upload(ctx context.Context, issueID, filename string, size int64, body io.Reader) (*store.Attachment, error) {
	object := ObjectName(issueID, filename)
	info, err := s.client.PutObject(ctx, s.bucket, object, body, size, minio.PutObjectOptions{
		ContentType: ContentType(filename),
	})
	if err != nil {
		s.log.Error().Err(err).Str("issue", issueID).Str("file", filename).Msg("attachment upload failed")
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	return &store.Attachment{
		URL:        object,
		Name:       filename,
		Size:       info.Size,
		UploadedAt: time.Now(),
	}, nil
}

// PresignedURL returns a short-lived download link for a stored object.
func (s *Service) PresignedURL(ctx context.Context, object string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, object, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign attachment: %w", err)
	}
	return u.String(), nil
}

// Delete removes a stored object. Missing objects are not an error.
func (s *Service) Delete(ctx context.Context, object string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// ObjectName builds the bucket key for an attachment. A random component
// keeps same-named uploads on one issue from overwriting each other.
func ObjectName(issueID, filename string) string {
	base := strings.ReplaceAll(path.Base(filename), " ", "_")
	return fmt.Sprintf("issues/%s/%s-%s", issueID, uuid.NewString()[:8], base)
}

// ContentType resolves a MIME type from the file extension, defaulting to
// octet-stream.
func ContentType(filename string) string {
	if ct := mime.TypeByExtension(path.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
