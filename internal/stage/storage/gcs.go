package storage

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
)

// GCSBackend stages chunks into a per-region GCS bucket, creating it
// if it doesn't already exist.
type GCSBackend struct {
	client       *storage.Client
	projectID    string
	bucketPrefix string
}

func NewGCSBackend(client *storage.Client, projectID, bucketPrefix string) *GCSBackend {
	if bucketPrefix == "" {
		bucketPrefix = "terradev-staging"
	}
	return &GCSBackend{client: client, projectID: projectID, bucketPrefix: bucketPrefix}
}

func (b *GCSBackend) Name() string { return "gcs" }

func (b *GCSBackend) Upload(ctx context.Context, region, key string, r io.Reader) error {
	bucketName := b.bucketPrefix + "-" + region
	bucket := b.client.Bucket(bucketName)
	if _, err := bucket.Attrs(ctx); err != nil {
		if err := bucket.Create(ctx, b.projectID, &storage.BucketAttrs{Location: region}); err != nil {
			return err
		}
	}

	w := bucket.Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
