package attachment

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"office-chat/store/storetest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSniff(t *testing.T) {
	mediaType, err := Sniff(pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)

	mediaType, err = Sniff([]byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mediaType)

	mediaType, err = Sniff([]byte("Meeting notes: bring badges"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mediaType)

	_, err = Sniff(append([]byte("\x7fELF\x02\x01\x01"), make([]byte, 64)...))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDBStoreUploadAndGet(t *testing.T) {
	ctx := context.Background()
	db, _ := storetest.New(t)
	dbStore := NewDBStore(db, "/v1/chat/attachments")
	svc := NewService(dbStore, discard())

	stored, err := svc.Upload(ctx, "../../floor plan.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "floor plan.png", stored.Name)
	assert.Equal(t, "image/png", stored.MediaType)
	assert.Equal(t, "/v1/chat/attachments/"+stored.ID, stored.URL)
	assert.EqualValues(t, len(pngBytes), stored.Size)

	row, err := dbStore.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, row.Data)

	_, err = dbStore.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadRejects(t *testing.T) {
	ctx := context.Background()
	db, _ := storetest.New(t)
	svc := NewService(NewDBStore(db, "/files"), discard())

	_, err := svc.Upload(ctx, "empty.txt", nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = svc.Upload(ctx, "big.txt", []byte(strings.Repeat("a", MaxSize+1)))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = svc.Upload(ctx, "run.exe", append([]byte("\x7fELF\x02\x01\x01"), make([]byte, 64)...))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreSave(t *testing.T) {
	client := &fakeS3{}
	svc := NewService(NewS3Store(client, "office-files", "eu-west-1"), discard())

	stored, err := svc.Upload(context.Background(), "badge.png", pngBytes)
	require.NoError(t, err)

	key := "chat/" + stored.ID + ".png"
	assert.Equal(t, key, aws.ToString(client.input.Key))
	assert.Equal(t, "office-files", aws.ToString(client.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(client.input.ContentType))
	assert.True(t, bytes.Equal(pngBytes, client.body))
	assert.Equal(t, "https://office-files.s3.eu-west-1.amazonaws.com/"+key, stored.URL)
}
