package minio

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	minioLib "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMinio implements minioAPI for testing without network.
type fakeMinio struct {
	bucketExists    bool
	bucketExistsErr error
	makeBucketErr   error
	madeBucket      bool

	putKey string
	putErr error

	getRC  io.ReadCloser
	getErr error
}

func (f *fakeMinio) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, f.bucketExistsErr
}
func (f *fakeMinio) MakeBucket(_ context.Context, _ string, _ minioLib.MakeBucketOptions) error {
	f.madeBucket = true
	return f.makeBucketErr
}
func (f *fakeMinio) PutObject(_ context.Context, _ string, objectName string, _ io.Reader, _ int64, _ minioLib.PutObjectOptions) (minioLib.UploadInfo, error) {
	f.putKey = objectName
	return minioLib.UploadInfo{}, f.putErr
}
func (f *fakeMinio) GetObject(_ context.Context, _ string, _ string, _ minioLib.GetObjectOptions) (io.ReadCloser, error) {
	return f.getRC, f.getErr
}

func TestNewArchiveWithAPI_BucketExists(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: true}

	a, err := NewArchiveWithAPI(ctx, api, "reports")
	require.NoError(t, err)
	assert.Equal(t, "reports", a.bucket)
	assert.False(t, api.madeBucket)
}

func TestNewArchiveWithAPI_CreatesBucket(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExists: false}

	a, err := NewArchiveWithAPI(ctx, api, "reports")
	require.NoError(t, err)
	assert.NotNil(t, a)
	assert.True(t, api.madeBucket)
}

func TestNewArchiveWithAPI_BucketError(t *testing.T) {
	ctx := context.Background()
	api := &fakeMinio{bucketExistsErr: errors.New("boom")}

	a, err := NewArchiveWithAPI(ctx, api, "reports")
	assert.Nil(t, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ensure bucket exists")
}

func TestArchive_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		api := &fakeMinio{}
		a := &Archive{api: api, bucket: "reports"}

		err := a.Put(ctx, "runs/abc.json", []byte(`{"success":true}`))
		require.NoError(t, err)
		assert.Equal(t, "runs/abc.json", api.putKey)
	})

	t.Run("error", func(t *testing.T) {
		api := &fakeMinio{putErr: errors.New("put-fail")}
		a := &Archive{api: api, bucket: "reports"}

		err := a.Put(ctx, "runs/abc.json", []byte("x"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upload report")
	})
}

func TestArchive_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		api := &fakeMinio{getRC: io.NopCloser(strings.NewReader("report body"))}
		a := &Archive{api: api, bucket: "reports"}

		data, err := a.Get(ctx, "runs/abc.txt")
		require.NoError(t, err)
		assert.Equal(t, "report body", string(data))
	})

	t.Run("error", func(t *testing.T) {
		api := &fakeMinio{getErr: errors.New("get-fail")}
		a := &Archive{api: api, bucket: "reports"}

		_, err := a.Get(ctx, "runs/abc.txt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get report")
	})
}
