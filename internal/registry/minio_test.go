package registry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelly-eugenia/weather-forecast/internal/logger"
)

// memoryObjects answers like an S3 endpoint backed by a map.
type memoryObjects struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
	types   map[string]string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{buckets: map[string]map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryObjects) BucketExists(_ context.Context, bucket string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.buckets[bucket]
	return ok, nil
}

func (m *memoryObjects) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[bucket] = map[string][]byte{}
	return nil
}

func (m *memoryObjects) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[bucket][key] = data
	m.types[key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(data))}, nil
}

func (m *memoryObjects) StatObject(_ context.Context, bucket, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchBucket", BucketName: bucket}
	}
	data, ok := objects[key]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", Key: key}
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryObjects) OpenObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return io.NopCloser(bytes.NewReader(m.buckets[bucket][key])), nil
}

func TestMinioBackend_SaveAndLoad(t *testing.T) {
	objects := newMemoryObjects()
	backend := &MinioBackend{client: objects, bucket: "weather-models"}
	r := New(backend, logger.Discard())
	ctx := context.Background()

	_, err := r.Save(ctx, "precipitation_regression", Meta{RunID: "run-1"}, coefficients{Values: []float64{1}})
	require.NoError(t, err)
	_, err = r.Save(ctx, "precipitation_regression", Meta{RunID: "run-2"}, coefficients{Values: []float64{2}})
	require.NoError(t, err)

	stored := objects.buckets["weather-models"]
	assert.Contains(t, stored, "precipitation_regression/v000001.json")
	assert.Contains(t, stored, "precipitation_regression/v000002.json")
	assert.Equal(t, "2", string(stored["precipitation_regression/LATEST"]))
	assert.Equal(t, "application/json", objects.types["precipitation_regression/v000002.json"])
	assert.Equal(t, "text/plain", objects.types["precipitation_regression/LATEST"])

	v, art, err := LoadAs[coefficients](ctx, New(backend, logger.Discard()), "precipitation_regression")
	require.NoError(t, err)
	assert.Equal(t, 2, art.Version)
	assert.Equal(t, "run-2", art.RunID)
	assert.Equal(t, []float64{2}, v.Values)
}

func TestMinioBackend_MissingObjectsAreModelNotFound(t *testing.T) {
	objects := newMemoryObjects()
	ctx := context.Background()

	noBucket := &MinioBackend{client: objects, bucket: "weather-models"}
	_, err := noBucket.Latest(ctx, "temperature_regression")
	assert.ErrorIs(t, err, ErrModelNotFound)

	require.NoError(t, objects.MakeBucket(ctx, "weather-models", minio.MakeBucketOptions{}))
	_, err = noBucket.Latest(ctx, "temperature_regression")
	assert.ErrorIs(t, err, ErrModelNotFound)
	_, err = noBucket.Read(ctx, "temperature_regression", 3)
	assert.ErrorIs(t, err, ErrModelNotFound)

	missing, err := New(noBucket, logger.Discard()).Missing(ctx, "temperature_regression")
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature_regression"}, missing)
}

func TestMinioBackend_InvalidLatestPointer(t *testing.T) {
	objects := newMemoryObjects()
	ctx := context.Background()
	require.NoError(t, objects.MakeBucket(ctx, "weather-models", minio.MakeBucketOptions{}))
	objects.buckets["weather-models"]["temperature_regression/LATEST"] = []byte("two")

	_, err := (&MinioBackend{client: objects, bucket: "weather-models"}).Latest(ctx, "temperature_regression")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrModelNotFound)
}

func TestObjectError(t *testing.T) {
	assert.ErrorIs(t, objectError("stat", "k", minio.ErrorResponse{Code: "NoSuchKey"}), ErrModelNotFound)
	assert.ErrorIs(t, objectError("stat", "k", minio.ErrorResponse{Code: "NoSuchBucket"}), ErrModelNotFound)

	denied := minio.ErrorResponse{Code: "AccessDenied"}
	err := objectError("stat", "temperature_regression/LATEST", denied)
	assert.NotErrorIs(t, err, ErrModelNotFound)
	assert.Contains(t, err.Error(), "temperature_regression/LATEST")

	boom := errors.New("connection reset")
	assert.ErrorIs(t, objectError("upload", "k", boom), boom)
}
