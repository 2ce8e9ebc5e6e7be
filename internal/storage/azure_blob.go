package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/zap"
)

// AzureBlobStore implements Store on Azure Blob Storage
type AzureBlobStore struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewAzureBlobStore creates a blob store and ensures the container exists
func NewAzureBlobStore(connectionString, containerName string, logger *zap.Logger) (*AzureBlobStore, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	_, err = client.CreateContainer(context.Background(), containerName, nil)
	if err != nil && !strings.Contains(err.Error(), "ContainerAlreadyExists") {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	logger.Info("Azure Blob Storage initialized", zap.String("container", containerName))
	return &AzureBlobStore{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// Upload stores the payload under the given key
func (s *AzureBlobStore) Upload(ctx context.Context, key string, data []byte) error {
	_, err := s.client.UploadStream(ctx, s.containerName, key, bytes.NewReader(data), nil)
	if err != nil {
		return fmt.Errorf("failed to upload blob: %w", err)
	}
	s.logger.Debug("Blob uploaded",
		zap.String("key", key),
		zap.String("container", s.containerName),
		zap.Int("size", len(data)))
	return nil
}

// Download reads the payload stored under the given key
func (s *AzureBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.containerName, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	return drain(resp.Body)
}

// Delete removes the payload stored under the given key
func (s *AzureBlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteBlob(ctx, s.containerName, key, nil)
	if err != nil {
		if strings.Contains(err.Error(), "BlobNotFound") {
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
