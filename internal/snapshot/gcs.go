package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

// GCS uploads snapshots to a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ news.SnapshotStore = (*GCS)(nil)

// NewGCS creates a bucket-backed store. Objects are written below prefix.
func NewGCS(client *storage.Client, bucket, prefix string) (*GCS, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCS{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Put uploads html and returns its gs:// URI.
func (s *GCS) Put(ctx context.Context, key string, html []byte) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("snapshot key is required")
	}
	object := objectName(s.prefix, key)
	writer := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = "text/html; charset=utf-8"
	if _, err := io.Copy(writer, bytes.NewReader(html)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, object), nil
}

func objectName(prefix, key string) string {
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}
