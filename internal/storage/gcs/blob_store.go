// Package gcs uploads failure screenshots to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"maps"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

// DefaultCacheControl keeps screenshots out of shared caches.
const DefaultCacheControl = "private, max-age=0, no-transform"

// Config selects the bucket and the default object attributes.
type Config struct {
	Bucket       string `mapstructure:"bucket"`
	CacheControl string `mapstructure:"cache_control"`
	// Metadata is attached to every object; per-call metadata wins on conflict.
	Metadata map[string]string `mapstructure:"metadata"`
}

// BlobStore writes diagnostic objects to one bucket.
type BlobStore struct {
	client       *storage.Client
	bucket       string
	cacheControl string
	metadata     map[string]string
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	cacheControl := cfg.CacheControl
	if cacheControl == "" {
		cacheControl = DefaultCacheControl
	}
	return &BlobStore{
		client:       client,
		bucket:       cfg.Bucket,
		cacheControl: cacheControl,
		metadata:     maps.Clone(cfg.Metadata),
	}, nil
}

// PutObject uploads data in a single request and returns a gs:// URI.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, r io.Reader, opts ...postal.ObjectOption) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	attrs := s.objectAttrs(opts)

	writer := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	// Screenshots are small; skip the resumable session.
	writer.ChunkSize = 0
	writer.ContentType = contentType
	writer.CacheControl = attrs.CacheControl
	writer.Metadata = attrs.Metadata
	if _, err := io.Copy(writer, r); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}

func (s *BlobStore) objectAttrs(opts []postal.ObjectOption) postal.ObjectAttrs {
	attrs := postal.ApplyObjectOptions(opts)
	if attrs.CacheControl == "" {
		attrs.CacheControl = s.cacheControl
	}
	if len(s.metadata) > 0 {
		merged := maps.Clone(s.metadata)
		maps.Copy(merged, attrs.Metadata)
		attrs.Metadata = merged
	}
	return attrs
}
