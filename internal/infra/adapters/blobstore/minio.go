// Package blobstore stores book assets (covers and PDFs) in an
// S3-compatible object store.
package blobstore

import (
	"context"
	"fmt"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/inkpress/bookstore/internal/core/ports"
)

var _ ports.BlobStore = (*MinioStore)(nil)

// MinioStore implements ports.BlobStore on a MinIO (or any S3-compatible)
// endpoint. The bucket must allow public reads: the returned URLs are
// embedded in the storefront and in checkout line items.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// Config holds the connection settings for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func New(cfg Config) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: connect to %s: %w", cfg.Endpoint, err)
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return &MinioStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet. Call once
// on startup.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("blobstore: check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("blobstore: create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put uploads the object and returns its public URL. Existing objects
// with the same name are overwritten, which is what asset replacement
// on book updates relies on.
func (s *MinioStore) Put(ctx context.Context, objectName string, upload ports.Upload) (string, error) {
	size := upload.Size
	if size <= 0 {
		// Unknown length: stream with multipart upload.
		size = -1
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectName, upload.Data, size, minio.PutObjectOptions{
		ContentType: upload.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("blobstore: put %s: %w", objectName, err)
	}

	return s.baseURL + "/" + escapePath(objectName), nil
}

func escapePath(objectName string) string {
	u := url.URL{Path: objectName}
	return u.EscapedPath()
}
