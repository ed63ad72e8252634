// Package gcs implements the Google Cloud Storage backend. Credentials come
// from a service account key (file or inline JSON) or Application Default
// Credentials. Setting an endpoint without credentials targets an
// unauthenticated emulator such as fake-gcs-server.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	appconfig "github.com/admitai/admitai-korea/internal/config"
	appstorage "github.com/admitai/admitai-korea/internal/storage"
)

func init() {
	appstorage.Register("gcs", func(cfg *appconfig.Config) (appstorage.Storage, error) {
		return New(&cfg.Storage.GCS)
	})
}

// GCSStorage implements storage.Storage on a GCS bucket
type GCSStorage struct {
	client *storage.Client
	bucket string
}

// New creates a GCS backend
func New(cfg *appconfig.GCSStorageConfig) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.Endpoint != "":
		opts = append(opts, option.WithoutAuthentication())
	}

	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStorage{client: client, bucket: cfg.Bucket}, nil
}

// Close closes the GCS client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Put writes the object with its SHA-256 in custom metadata.
func (s *GCSStorage) Put(ctx context.Context, key string, data []byte, contentType string) (*appstorage.ObjectInfo, error) {
	checksum := appstorage.Checksum(data)

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.Metadata = map[string]string{"sha256": checksum}
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close GCS writer: %w", err)
	}

	info := &appstorage.ObjectInfo{Key: key, Size: int64(len(data)), Checksum: checksum}
	if attrs := w.Attrs(); attrs != nil {
		info.LastModified = attrs.Updated
	}
	return info, nil
}

// Get reads the object body
func (s *GCSStorage) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, appstorage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read from GCS: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object: %w", err)
	}
	return data, nil
}

// Stat returns object attributes
func (s *GCSStorage) Stat(ctx context.Context, key string) (*appstorage.ObjectInfo, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, appstorage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object attributes: %w", err)
	}
	return &appstorage.ObjectInfo{
		Key:          key,
		Size:         attrs.Size,
		Checksum:     attrs.Metadata["sha256"],
		LastModified: attrs.Updated,
	}, nil
}

// Delete removes the object, ignoring a missing one.
func (s *GCSStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete from GCS: %w", err)
	}
	return nil
}
