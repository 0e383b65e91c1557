package r2

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	objects map[string][]byte
	failPut bool
}

func newFakeBucket() *fakeBucket { return &fakeBucket{objects: map[string][]byte{}} }

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut {
		return nil, errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	c := newClient(newFakeBucket(), "bucket", "studybuddy/")
	assert.Equal(t, "studybuddy/study_buddy_results.json", c.ObjectKey("study_buddy_results"))

	bare := newClient(newFakeBucket(), "bucket", "")
	assert.Equal(t, "study_buddy_settings.json", bare.ObjectKey("study_buddy_settings"))
}

func TestClient_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	bucket := newFakeBucket()
	c := newClient(bucket, "bucket", "sb")

	_, ok, err := c.Get(ctx, "study_buddy_results")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "study_buddy_results", []byte(`[]`)))
	assert.Contains(t, bucket.objects, "sb/study_buddy_results.json")

	data, ok, err := c.Get(ctx, "study_buddy_results")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(data))

	require.NoError(t, c.Delete(ctx, "study_buddy_results"))
	_, ok, err = c.Get(ctx, "study_buddy_results")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_SetError(t *testing.T) {
	bucket := newFakeBucket()
	bucket.failPut = true
	c := newClient(bucket, "bucket", "")

	err := c.Set(context.Background(), "k", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "k.json")
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), Options{BucketName: "b"})
	require.Error(t, err)
}
