package minio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tendant/resource-hub/pkg/hub"
)

// Config options for the MinIO backend
type Config struct {
	Endpoint        string // host:port, without scheme
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	PresignDuration time.Duration // default 1h

	// PublicBaseURL is prepended to keys to form the URL stored on a
	// material. Defaults to {scheme}://{endpoint}/{bucket}.
	PublicBaseURL string

	CreateBucketIfNotExist bool
}

// Backend stores blobs in a MinIO bucket
type Backend struct {
	client          *minio.Client
	bucket          string
	publicBaseURL   string
	presignDuration time.Duration
}

// New creates a new MinIO storage backend
func New(ctx context.Context, config Config) (*Backend, error) {
	if config.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.PresignDuration <= 0 {
		config.PresignDuration = time.Hour
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	b := &Backend{
		client:          client,
		bucket:          config.Bucket,
		publicBaseURL:   publicBaseURL(config),
		presignDuration: config.PresignDuration,
	}

	if config.CreateBucketIfNotExist {
		exists, err := client.BucketExists(ctx, config.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to check bucket existence: %w", err)
		}
		if !exists {
			err = client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{Region: config.Region})
			if err != nil {
				return nil, fmt.Errorf("failed to create bucket: %w", err)
			}
		}
	}

	return b, nil
}

func publicBaseURL(config Config) string {
	if config.PublicBaseURL != "" {
		return strings.TrimSuffix(config.PublicBaseURL, "/")
	}
	scheme := "http"
	if config.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, config.Endpoint, config.Bucket)
}

// Put uploads content and returns its public URL. An unknown size (<= 0)
// streams the upload in parts.
func (b *Backend) Put(ctx context.Context, params hub.PutParams) (string, error) {
	size := params.Size
	if size <= 0 {
		size = -1
	}
	_, err := b.client.PutObject(ctx, b.bucket, params.Key, params.Reader, size, minio.PutObjectOptions{
		ContentType: params.MimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to MinIO: %w", err)
	}
	return b.ObjectURL(params.Key), nil
}

// ObjectURL returns the public URL of key
func (b *Backend) ObjectURL(key string) string {
	return b.publicBaseURL + "/" + key
}

// DownloadURL returns a presigned URL that downloads key as filename
func (b *Backend) DownloadURL(ctx context.Context, key, filename string) (string, error) {
	params := url.Values{}
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	}
	u, err := b.client.PresignedGetObject(ctx, b.bucket, key, b.presignDuration, params)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

// Delete removes key from the bucket
func (b *Backend) Delete(ctx context.Context, key string) error {
	err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove file from MinIO: %w", err)
	}
	return nil
}

// List returns the objects under prefix
func (b *Backend) List(ctx context.Context, prefix string) ([]hub.BlobInfo, error) {
	var infos []hub.BlobInfo
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list MinIO objects: %w", obj.Err)
		}
		infos = append(infos, hub.BlobInfo{Key: obj.Key, Size: obj.Size, ModifiedAt: obj.LastModified})
	}
	return infos, nil
}
