package storage

import (
	"context"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureBackend stages chunks into a per-region blob container.
type AzureBackend struct {
	client *azblob.Client
}

func NewAzureBackend(connectionString string) (*AzureBackend, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, err
	}
	return &AzureBackend{client: client}, nil
}

func (b *AzureBackend) Name() string { return "azblob" }

func (b *AzureBackend) Upload(ctx context.Context, region, key string, r io.Reader) error {
	container := "terradev-staging-" + region
	if _, err := b.client.CreateContainer(ctx, container, nil); err != nil {
		// Creation racing an existing container is expected; the
		// upload itself is the real signal of success or failure.
	}
	_, err := b.client.UploadStream(ctx, container, key, r, nil)
	return err
}
