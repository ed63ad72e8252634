// Package azure implements the Azure Blob Storage backend. Objects are block
// blobs in a single container, each carrying its SHA-256 in blob metadata.
package azure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"

	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/storage"
)

func init() {
	storage.Register("azure", func(cfg *config.Config) (storage.Storage, error) {
		return New(&cfg.Storage.Azure)
	})
}

const checksumMetaKey = "sha256"

// metadataValue looks up a blob metadata entry. Keys come back from the
// service with canonical header casing, so "sha256" is read as "Sha256".
func metadataValue(meta map[string]*string, key string) string {
	for k, v := range meta {
		if v != nil && strings.EqualFold(k, key) {
			return *v
		}
	}
	return ""
}

// AzureStorage implements storage.Storage on Azure Blob Storage
type AzureStorage struct {
	client        *azblob.Client
	containerName string
}

// New creates an Azure backend authenticated with the account shared key.
func New(cfg *config.AzureStorageConfig) (*AzureStorage, error) {
	if cfg.AccountName == "" {
		return nil, fmt.Errorf("azure storage account name is required")
	}
	if cfg.AccountKey == "" {
		return nil, fmt.Errorf("azure storage account key is required")
	}
	if cfg.ContainerName == "" {
		return nil, fmt.Errorf("azure storage container name is required")
	}

	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
	}

	return &AzureStorage{client: client, containerName: cfg.ContainerName}, nil
}

func (s *AzureStorage) blobClient(key string) *blob.Client {
	return s.client.ServiceClient().NewContainerClient(s.containerName).NewBlobClient(key)
}

// Put uploads a block blob
func (s *AzureStorage) Put(ctx context.Context, key string, data []byte, contentType string) (*storage.ObjectInfo, error) {
	checksum := storage.Checksum(data)
	opts := &blockblob.UploadOptions{
		Metadata: map[string]*string{checksumMetaKey: &checksum},
	}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}

	bb := s.client.ServiceClient().NewContainerClient(s.containerName).NewBlockBlobClient(key)
	if _, err := bb.Upload(ctx, streaming.NopCloser(bytes.NewReader(data)), opts); err != nil {
		return nil, fmt.Errorf("failed to upload to Azure Blob: %w", err)
	}
	return &storage.ObjectInfo{Key: key, Size: int64(len(data)), Checksum: checksum}, nil
}

// Get downloads the blob
func (s *AzureStorage) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.blobClient(key).DownloadStream(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to download from Azure Blob: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Azure blob: %w", err)
	}
	return data, nil
}

// Stat reads blob properties without downloading the body.
func (s *AzureStorage) Stat(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	props, err := s.blobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get blob properties: %w", err)
	}

	info := &storage.ObjectInfo{Key: key}
	info.Checksum = metadataValue(props.Metadata, checksumMetaKey)
	if props.ContentLength != nil {
		info.Size = *props.ContentLength
	}
	if props.LastModified != nil {
		info.LastModified = *props.LastModified
	}
	return info, nil
}

// Delete removes the blob, ignoring a missing blob.
func (s *AzureStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.blobClient(key).Delete(ctx, nil); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete from Azure Blob: %w", err)
	}
	return nil
}

// EnsureContainer creates the container. An existing container is not an error.
func (s *AzureStorage) EnsureContainer(ctx context.Context) error {
	_, err := s.client.ServiceClient().NewContainerClient(s.containerName).Create(ctx, nil)
	var respErr *azcore.ResponseError
	if err != nil && !(errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict) {
		return fmt.Errorf("failed to create container: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
