package media

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicmoon/marketplace/internal/apperr"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestRequire(t *testing.T) {
	assert.NoError(t, Require("cover.png", pngHeader, "image"))
	assert.NoError(t, Require("blob", pngHeader, "image"))
	assert.NoError(t, Require("track.mp3", []byte("ID3\x03"), "audio"))

	assert.ErrorIs(t, Require("cover.png", nil, "image"), apperr.ErrValidationFailed)
	assert.ErrorIs(t, Require("notes.txt", []byte("hello"), "audio"), apperr.ErrValidationFailed)
	assert.ErrorIs(t, Require("cover.png", pngHeader, "audio"), apperr.ErrValidationFailed)
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreUploadAndDelete(t *testing.T) {
	client := &fakeS3{}
	store := NewS3Store(client, "musicmoon", "http://localhost:9000/musicmoon/")
	ctx := context.Background()

	url, err := store.Upload(ctx, FolderItemImages, "Cover.PNG", pngHeader)
	require.NoError(t, err)
	require.Len(t, client.puts, 1)

	key := aws.ToString(client.puts[0].Key)
	assert.True(t, strings.HasPrefix(key, "nft-images/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "image/png", aws.ToString(client.puts[0].ContentType))
	assert.Equal(t, "http://localhost:9000/musicmoon/"+key, url)

	require.NoError(t, store.Delete(ctx, url))
	require.Len(t, client.deletes, 1)
	assert.Equal(t, key, aws.ToString(client.deletes[0].Key))

	assert.ErrorIs(t, store.Delete(ctx, "https://elsewhere/x.png"), apperr.ErrNotFound)
}

func TestS3StoreFailures(t *testing.T) {
	store := NewS3Store(&fakeS3{err: errors.New("boom")}, "b", "http://s3/b")
	ctx := context.Background()

	_, err := store.Upload(ctx, FolderItemAudio, "a.mp3", []byte("ID3"))
	assert.ErrorIs(t, err, apperr.ErrStoreFailed)

	_, err = store.Upload(ctx, Folder("tmp"), "a.mp3", []byte("ID3"))
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	url, err := store.Upload(ctx, FolderUserImages, "me.png", pngHeader)
	require.NoError(t, err)
	data, ok := store.Get(url)
	require.True(t, ok)
	assert.Equal(t, pngHeader, data)

	require.NoError(t, store.Delete(ctx, url))
	assert.Equal(t, 0, store.Len())
	assert.ErrorIs(t, store.Delete(ctx, url), apperr.ErrNotFound)
}
