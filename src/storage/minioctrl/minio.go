package minioctrl

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const DefaultPDFBucket = "pdfs"

type MinioService struct {
	client *minio.Client
}

func NewMinioService(endpoint, accessKeyID, secretAccessKey string, useSSL bool) (*MinioService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioService{
		client: client,
	}, nil
}

func (s *MinioService) EnsureBucketExists(ctx context.Context, bucketName string) error {
	exists, err := s.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// GetObject returns a stream of the object; the caller closes it.
func (s *MinioService) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing object here instead of on first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return obj, nil
}

func (s *MinioService) PutObject(ctx context.Context, bucketName, objectName string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucketName, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}

	return nil
}

func (s *MinioService) DeleteObject(ctx context.Context, bucketName, objectName string) error {
	err := s.client.RemoveObject(ctx, bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// PDFArchive keeps uploaded PDFs in one bucket, keyed by object name.
type PDFArchive struct {
	svc    *MinioService
	bucket string
}

func NewPDFArchive(svc *MinioService, bucket string) *PDFArchive {
	if bucket == "" {
		bucket = DefaultPDFBucket
	}
	return &PDFArchive{svc: svc, bucket: bucket}
}

// Init creates the bucket when missing.
func (a *PDFArchive) Init(ctx context.Context) error {
	return a.svc.EnsureBucketExists(ctx, a.bucket)
}

func (a *PDFArchive) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	return a.svc.PutObject(ctx, a.bucket, key, r, size, "application/pdf")
}

func (a *PDFArchive) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return a.svc.GetObject(ctx, a.bucket, key)
}

func (a *PDFArchive) Delete(ctx context.Context, key string) error {
	return a.svc.DeleteObject(ctx, a.bucket, key)
}
