package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Backend stages chunks into a per-region bucket, creating it with
// all public access blocked if it doesn't already exist. Grounded on
// internal/storage/darkstorage.go's PutObjectInput usage and the
// Python original's head_bucket/create_bucket/put_public_access_block
// sequence.
type S3Backend struct {
	client       *s3.Client
	bucketPrefix string
}

func NewS3Backend(client *s3.Client, bucketPrefix string) *S3Backend {
	if bucketPrefix == "" {
		bucketPrefix = "terradev-staging"
	}
	return &S3Backend{client: client, bucketPrefix: bucketPrefix}
}

func (b *S3Backend) Name() string { return "s3" }

func (b *S3Backend) Upload(ctx context.Context, region, key string, r io.Reader) error {
	bucket := fmt.Sprintf("%s-%s", b.bucketPrefix, region)
	if err := b.ensureBucket(ctx, bucket, region); err != nil {
		return err
	}
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	return err
}

func (b *S3Backend) ensureBucket(ctx context.Context, bucket, region string) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}

	createInput := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if region != "us-east-1" {
		createInput.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := b.client.CreateBucket(ctx, createInput); err != nil {
		return err
	}

	_, err = b.client.PutPublicAccessBlock(ctx, &s3.PutPublicAccessBlockInput{
		Bucket: aws.String(bucket),
		PublicAccessBlockConfiguration: &types.PublicAccessBlockConfiguration{
			BlockPublicAcls:       aws.Bool(true),
			IgnorePublicAcls:      aws.Bool(true),
			BlockPublicPolicy:     aws.Bool(true),
			RestrictPublicBuckets: aws.Bool(true),
		},
	})
	return err
}
