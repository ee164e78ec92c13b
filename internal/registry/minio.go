package registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds connection settings for an S3-compatible artifact store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// objectStore is the subset of the minio client the backend uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

type minioClient struct {
	*minio.Client
}

func (c minioClient) OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return c.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
}

// MinioBackend keeps artifacts as objects using the same layout as FileBackend.
type MinioBackend struct {
	client objectStore
	bucket string
}

// NewMinioBackend connects to the object store and checks it is reachable.
func NewMinioBackend(ctx context.Context, cfg MinioConfig) (*MinioBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := client.ListBuckets(ctx); err != nil {
		return nil, fmt.Errorf("failed to list minio buckets: %w", err)
	}

	return &MinioBackend{client: minioClient{client}, bucket: cfg.Bucket}, nil
}

func (b *MinioBackend) Latest(ctx context.Context, name string) (int, error) {
	raw, err := b.get(ctx, latestName(name))
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("invalid LATEST pointer for %s: %w", name, err)
	}
	return v, nil
}

func (b *MinioBackend) Read(ctx context.Context, name string, version int) ([]byte, error) {
	return b.get(ctx, objectName(name, version))
}

func (b *MinioBackend) Write(ctx context.Context, name string, version int, data []byte) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	if err := b.put(ctx, objectName(name, version), data, "application/json"); err != nil {
		return err
	}
	return b.put(ctx, latestName(name), []byte(strconv.Itoa(version)), "text/plain")
}

func (b *MinioBackend) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (b *MinioBackend) get(ctx context.Context, key string) ([]byte, error) {
	if _, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, objectError("stat", key, err)
	}

	obj, err := b.client.OpenObject(ctx, b.bucket, key)
	if err != nil {
		return nil, objectError("download", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, objectError("download", key, err)
	}
	return data, nil
}

// objectError maps missing keys and buckets to ErrModelNotFound.
func objectError(op, key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrModelNotFound
	}
	return fmt.Errorf("failed to %s %s: %w", op, key, err)
}
