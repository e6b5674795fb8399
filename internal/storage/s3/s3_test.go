package s3

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Backend_Configuration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(context.Background(), Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("Defaults", func(t *testing.T) {
		backend, err := New(context.Background(), Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, time.Hour, backend.presignDuration)
	})
}

func TestS3Backend_ObjectKeyPrefix(t *testing.T) {
	backend := &Backend{config: Config{Prefix: "/uploads/"}}

	key, bucketKey, err := backend.objectKey("/d/s/c/1-a.docx")
	require.NoError(t, err)
	assert.Equal(t, "d/s/c/1-a.docx", key)
	assert.Equal(t, "uploads/d/s/c/1-a.docx", bucketKey)

	_, _, err = backend.objectKey("../a.docx")
	assert.Error(t, err)
}

func TestS3Backend_PresignedURL(t *testing.T) {
	backend, err := New(context.Background(), Config{
		Bucket:          "test-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	u, err := backend.URL(context.Background(), "d/s/c/1-a.docx")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://localhost:9000/test-bucket/d/s/c/1-a.docx?"), u)
	assert.Contains(t, u, "X-Amz-Signature=")
}

func TestS3Backend_PublicURL(t *testing.T) {
	backend := &Backend{config: Config{PublicURL: "https://cdn.example.com", Prefix: "uploads"}}

	u, err := backend.URL(context.Background(), "d/s/c/1-Q3 plan.docx")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/uploads/d/s/c/1-Q3%20plan.docx", u)
}

func TestCountingReader(t *testing.T) {
	c := &countingReader{r: strings.NewReader("hello world")}
	data, err := io.ReadAll(c)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, int64(11), c.n)
}

// TestS3Backend_MinIO runs against a live S3-compatible service when S3_TEST_ENDPOINT is set.
func TestS3Backend_MinIO(t *testing.T) {
	endpoint := os.Getenv("S3_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("S3_TEST_ENDPOINT not set")
	}

	ctx := context.Background()
	backend, err := New(ctx, Config{
		Bucket:                 "dropzone-test",
		Endpoint:               endpoint,
		UsePathStyle:           true,
		AccessKeyID:            os.Getenv("S3_TEST_ACCESS_KEY"),
		SecretAccessKey:        os.Getenv("S3_TEST_SECRET_KEY"),
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	key := "test/" + uuid.NewString() + "-a.docx"
	obj, err := backend.Put(ctx, key, strings.NewReader("content"), "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), obj.Size)

	reader, _, err := backend.Get(ctx, key)
	require.NoError(t, err)
	data, _ := io.ReadAll(reader)
	reader.Close()
	assert.Equal(t, "content", string(data))

	require.NoError(t, backend.Delete(ctx, key))
}
