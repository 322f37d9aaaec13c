package repository

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appConfig "github.com/openwheel/carmarket/internal/config"
)

// S3ImageRepository implements domain.ImageRepository against any
// S3-compatible store (SeaweedFS, MinIO, AWS) using AWS SDK v2
type S3ImageRepository struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3ImageRepository creates a new S3 image repository
func NewS3ImageRepository(ctx context.Context, cfg appConfig.S3Config) (*S3ImageRepository, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}

	// Path-style addressing is required for most self-hosted S3 stores
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	repo := &S3ImageRepository{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: cfg.Endpoint,
	}

	if err := repo.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return repo, nil
}

// Upload saves an image to S3 and returns its public URL
func (r *S3ImageRepository) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(filename),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to S3: %w", err)
	}

	// URL format: {Endpoint}/{Bucket}/{Key}
	url := fmt.Sprintf("%s/%s/%s", r.publicURL, r.bucket, filename)
	return url, nil
}

// Delete removes an image by the URL previously returned from Upload.
// S3 DeleteObject succeeds for missing keys, so deleting twice is harmless.
func (r *S3ImageRepository) Delete(ctx context.Context, url string) error {
	key, err := r.keyFromURL(url)
	if err != nil {
		return err
	}

	_, err = r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image from S3: %w", err)
	}
	return nil
}

// keyFromURL strips the endpoint and bucket prefix off an upload URL
func (r *S3ImageRepository) keyFromURL(url string) (string, error) {
	prefix := fmt.Sprintf("%s/%s/", r.publicURL, r.bucket)
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("image URL %q does not belong to bucket %s", url, r.bucket)
	}
	return strings.TrimPrefix(url, prefix), nil
}

// ensureBucket checks if the bucket exists, creating it if necessary
func (r *S3ImageRepository) ensureBucket(ctx context.Context) error {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(r.bucket),
	})

	if err != nil {
		_, err = r.client.CreateBucket(ctx, &s3.CreateBucketInput{
			Bucket: aws.String(r.bucket),
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", r.bucket, err)
		}
	}
	return nil
}
