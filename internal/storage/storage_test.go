package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uimarket/uimarket/config"
)

type memoryBackend struct {
	objects map[string][]byte
	ensured bool
}

func (m *memoryBackend) EnsureBucket(context.Context) error {
	m.ensured = true
	return nil
}

func (m *memoryBackend) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryBackend) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBackend) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return objects, nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryBackend) Bucket() string { return "catalog" }

func TestStorageDelegates(t *testing.T) {
	backend := &memoryBackend{objects: map[string][]byte{}}
	s := NewStorage(backend)
	ctx := context.Background()

	require.NoError(t, s.EnsureBucket(ctx))
	assert.True(t, backend.ensured)

	payload := []byte(`{"count":0}`)
	require.NoError(t, s.Put(ctx, "exports/a.json", bytes.NewReader(payload), int64(len(payload)), "application/json"))

	rc, err := s.Get(ctx, "exports/a.json")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, s.Put(ctx, "exports/0.json", bytes.NewReader(nil), 0, "application/json"))
	require.NoError(t, s.Put(ctx, "other/b.json", bytes.NewReader(nil), 0, "application/json"))
	listed, err := s.List(ctx, "exports/")
	require.NoError(t, err)
	assert.Equal(t, []ObjectInfo{
		{Key: "exports/0.json", Size: 0},
		{Key: "exports/a.json", Size: int64(len(payload))},
	}, listed)

	require.NoError(t, s.Delete(ctx, "exports/a.json"))
	_, err = s.Get(ctx, "exports/a.json")
	assert.Error(t, err)
	assert.Equal(t, "catalog", s.Bucket())
}

func TestOpenValidatesConfig(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		wantErr string
	}{
		{"unknown backend", config.StorageConfig{Backend: "ftp"}, "unknown storage backend"},
		{"minio without endpoint", config.StorageConfig{Backend: config.StorageBackendMinio}, "minio endpoint is required"},
		{"gcs without bucket", config.StorageConfig{Backend: config.StorageBackendGCS}, "gcs bucket is required"},
		{"s3 without bucket", config.StorageConfig{Backend: config.StorageBackendS3}, "s3 bucket is required"},
		{"s3 without region", config.StorageConfig{Backend: config.StorageBackendS3, S3: config.S3Config{Bucket: "b"}}, "s3 region is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(ctx, tt.cfg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewS3ClientWithEndpoint(t *testing.T) {
	client, err := NewS3Client(context.Background(), config.S3Config{
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "catalog",
	})
	require.NoError(t, err)
	assert.Equal(t, "catalog", client.Bucket())
	assert.True(t, client.client.Options().UsePathStyle)
	assert.Equal(t, "http://127.0.0.1:9000", *client.client.Options().BaseEndpoint)
}
