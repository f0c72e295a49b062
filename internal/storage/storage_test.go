package storage

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegData  = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0x01}, 32)...)
	pdfData   = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
)

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	args := m.Called(key, contentType, len(data))
	return args.String(0), args.Error(1)
}

func TestPolicy_Check(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		file    File
		want    string
		wantErr error
	}{
		{name: "png", policy: ImagePolicy, file: File{Name: "a.png", Data: pngHeader}, want: "image/png"},
		{name: "jpeg", policy: ImagePolicy, file: File{Name: "a.jpg", Data: jpegData}, want: "image/jpeg"},
		{name: "pdf as image", policy: ImagePolicy, file: File{Name: "a.pdf", Data: pdfData}, wantErr: ErrTypeNotAllowed},
		{name: "pdf as document", policy: DocumentPolicy, file: File{Name: "a.pdf", Data: pdfData}, want: "application/pdf"},
		{name: "renamed text", policy: ImagePolicy, file: File{Name: "a.png", Data: []byte("hello there")}, wantErr: ErrTypeNotAllowed},
		{name: "empty", policy: ImagePolicy, file: File{Name: "a.png"}, wantErr: ErrEmpty},
		{name: "too large", policy: ImagePolicy.WithMaxSize(16), file: File{Name: "a.png", Data: pngHeader}, wantErr: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.policy.Check(tt.file)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_DefaultCapIsTenMegabytes(t *testing.T) {
	big := append(append([]byte{}, pngHeader...), make([]byte, MaxFileSize)...)
	_, err := ImagePolicy.Check(File{Name: "big.png", Data: big})
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Contains(t, err.Error(), "10 MB")
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "12-main-st-colombo", Sanitize("  12 Main St., Colombo "))
	assert.Equal(t, "abc123", Sanitize("ABC123"))
	assert.Equal(t, "untitled", Sanitize("***"))
}

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	key := ObjectKey("Quarterly Report", "Summary.PDF", now)
	assert.Regexp(t, regexp.MustCompile(`^quarterly-report/1700000000123-[0-9a-f]{8}\.pdf$`), key)
	assert.NotEqual(t, key, ObjectKey("Quarterly Report", "Summary.PDF", now))
}

func TestDataURL(t *testing.T) {
	url := DataURL(File{Name: "a.png", Data: pngHeader})
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestBatch_UploadAll_SkipsBadFiles(t *testing.T) {
	uploader := &MockUploader{}
	uploader.On("Upload", mock.MatchedBy(func(k string) bool { return strings.HasPrefix(k, "user-1/") }), "image/png", mock.Anything).
		Return("https://cdn/x/1.png", nil).Once()
	uploader.On("Upload", mock.Anything, "image/jpeg", mock.Anything).
		Return("https://cdn/x/2.jpg", nil).Once()

	batch := NewBatch(uploader, ImagePolicy.WithMaxSize(1024), logrus.New())
	oversized := append(append([]byte{}, pngHeader...), make([]byte, 2048)...)

	result := batch.UploadAll(context.Background(), "user-1", []File{
		{Name: "front.png", Data: pngHeader},
		{Name: "huge.png", Data: oversized},
		{Name: "garden.jpg", Data: jpegData},
	})

	require.Len(t, result.Uploaded, 2)
	assert.Equal(t, "front.png", result.Uploaded[0].Name)
	assert.Equal(t, "https://cdn/x/1.png", result.Uploaded[0].URL)
	assert.Equal(t, "garden.jpg", result.Uploaded[1].Name)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "huge.png", result.Failures[0].Name)
	assert.ErrorIs(t, result.Failures[0].Err, ErrTooLarge)
	uploader.AssertNumberOfCalls(t, "Upload", 2)
}

func TestBatch_UploadAll_StorageErrorContinues(t *testing.T) {
	uploader := &MockUploader{}
	uploader.On("Upload", mock.Anything, "image/png", mock.Anything).Return("", errors.New("bucket offline")).Once()
	uploader.On("Upload", mock.Anything, "image/jpeg", mock.Anything).Return("https://cdn/ok.jpg", nil).Once()

	result := NewBatch(uploader, ImagePolicy, nil).UploadAll(context.Background(), "p", []File{
		{Name: "a.png", Data: pngHeader},
		{Name: "b.jpg", Data: jpegData},
	})

	require.Len(t, result.Uploaded, 1)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Reason(), "bucket offline")
}

func TestBatch_UploadAll_CancelledContext(t *testing.T) {
	uploader := &MockUploader{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewBatch(uploader, ImagePolicy, nil).UploadAll(ctx, "p", []File{{Name: "a.png", Data: pngHeader}})
	assert.Empty(t, result.Uploaded)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, context.Canceled)
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestBatch_NoUploader(t *testing.T) {
	_, err := NewBatch(nil, ImagePolicy, nil).UploadOne(context.Background(), "p", File{Name: "a.png", Data: pngHeader})
	assert.Error(t, err)
}

func TestBucket_PublicURL(t *testing.T) {
	b, err := NewBucket(BucketConfig{Endpoint: "storage.local:9000", Bucket: "housing", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "http://storage.local:9000/housing/user-1/1-ab%20c.png", b.PublicURL("user-1/1-ab c.png"))
}
