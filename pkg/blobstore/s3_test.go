package blobstore_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blobgate/pkg/blobstore"
)

// fakeS3 is an in-memory S3Client covering the two calls the backend makes.
type fakeS3 struct {
	objects map[string][]byte
	puts    int
	gets    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	content, ok := f.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(content))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts++
	content, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = content
	return &s3.PutObjectOutput{}, nil
}

func openS3(t *testing.T) (blobstore.Handle, *fakeS3) {
	t.Helper()

	client := newFakeS3()
	backend := blobstore.NewS3Backend(
		blobstore.S3Config{Bucket: "blobs", KeyPrefix: "app/"},
		blobstore.WithS3Client(client),
	)

	h, err := backend.Open(context.Background(), blobstore.Config{Kind: blobstore.StoragePersistent})
	require.NoError(t, err)
	return h, client
}

func TestS3OpenRequiresBucketAndRegion(t *testing.T) {
	t.Parallel()

	backend := blobstore.NewS3Backend(blobstore.S3Config{})
	_, err := backend.Open(context.Background(), blobstore.Config{Kind: blobstore.StoragePersistent})
	assert.ErrorIs(t, err, blobstore.ErrInvalidConfig)
}

func TestS3ReadWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, client := openS3(t)

	t.Run("read missing", func(t *testing.T) {
		_, err := h.Read(ctx, "missing.txt")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("overwrite then read", func(t *testing.T) {
		require.NoError(t, h.Write(ctx, "a.txt", []byte("hello"), blobstore.ModeOverwrite))
		content, err := h.Read(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), content)

		// The configured key prefix is applied.
		assert.Contains(t, client.objects, "app/a.txt")
	})

	t.Run("append is read-modify-write", func(t *testing.T) {
		require.NoError(t, h.Write(ctx, "d.txt", []byte("A"), blobstore.ModeOverwrite))

		gets := client.gets
		require.NoError(t, h.Write(ctx, "d.txt", []byte("B"), blobstore.ModeAppend))
		assert.Equal(t, gets+1, client.gets)

		content, err := h.Read(ctx, "d.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("AB"), content)
	})

	t.Run("append creates missing object", func(t *testing.T) {
		require.NoError(t, h.Write(ctx, "fresh.txt", []byte("X"), blobstore.ModeAppend))
		content, err := h.Read(ctx, "fresh.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("X"), content)
	})

	t.Run("invalid mode", func(t *testing.T) {
		err := h.Write(ctx, "a.txt", []byte("x"), "patch")
		assert.ErrorIs(t, err, blobstore.ErrInvalidMode)
	})
}
