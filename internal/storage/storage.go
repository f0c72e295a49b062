package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxFileSize is the per-file cap enforced before upload.
const MaxFileSize = 10 << 20

var (
	ErrEmpty          = errors.New("file is empty")
	ErrTooLarge       = errors.New("file exceeds the maximum size")
	ErrTypeNotAllowed = errors.New("file type is not allowed")
)

// File is an uploaded form file read into memory.
type File struct {
	Name string
	Data []byte
}

func (f File) Size() int64 { return int64(len(f.Data)) }

// ContentType is detected from the content, not taken from the browser.
func (f File) ContentType() string {
	ct, _, _ := strings.Cut(mimetype.Detect(f.Data).String(), ";")
	return strings.TrimSpace(ct)
}

// DataURL renders the file for an inline preview.
func DataURL(f File) string {
	return "data:" + f.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// Policy limits what may be uploaded.
type Policy struct {
	MaxSize int64
	Allowed []string
}

var ImagePolicy = Policy{
	MaxSize: MaxFileSize,
	Allowed: []string{"image/jpeg", "image/png", "image/webp", "image/gif"},
}

var DocumentPolicy = Policy{
	MaxSize: MaxFileSize,
	Allowed: []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"text/plain",
		"text/csv",
		"image/jpeg",
		"image/png",
	},
}

// WithMaxSize returns a copy of p with a different cap.
func (p Policy) WithMaxSize(n int64) Policy {
	if n > 0 {
		p.MaxSize = n
	}
	return p
}

// Check returns the detected content type, or why f is rejected.
func (p Policy) Check(f File) (string, error) {
	if f.Size() == 0 {
		return "", ErrEmpty
	}
	if p.MaxSize > 0 && f.Size() > p.MaxSize {
		return "", fmt.Errorf("%w (%d MB)", ErrTooLarge, p.MaxSize>>20)
	}

	detected := mimetype.Detect(f.Data)
	for _, allowed := range p.Allowed {
		if detected.Is(allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTypeNotAllowed, f.ContentType())
}

// Uploader stores one object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Sanitize turns a title or id into a safe folder name.
func Sanitize(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "untitled"
	}
	return out
}

// ObjectKey is {folder}/{unix-millis}-{random}{ext}.
func ObjectKey(folder, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%d-%s%s", Sanitize(folder), now.UnixMilli(), suffix, ext)
}

// Uploaded describes one stored file.
type Uploaded struct {
	Name        string
	URL         string
	ContentType string
}

// Failure describes one file that was skipped.
type Failure struct {
	Name string
	Err  error
}

func (f Failure) Reason() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// Result of a multi-file upload. Uploaded keeps the order of the input.
type Result struct {
	Uploaded []Uploaded
	Failures []Failure
}

// Batch uploads files one at a time. A failing file is logged and skipped;
// the rest of the batch still runs.
type Batch struct {
	uploader Uploader
	policy   Policy
	logger   *logrus.Logger
	now      func() time.Time
}

func NewBatch(uploader Uploader, policy Policy, logger *logrus.Logger) *Batch {
	if logger == nil {
		logger = logrus.New()
	}
	return &Batch{uploader: uploader, policy: policy, logger: logger, now: time.Now}
}

// UploadOne checks and stores a single file.
func (b *Batch) UploadOne(ctx context.Context, folder string, f File) (Uploaded, error) {
	contentType, err := b.policy.Check(f)
	if err != nil {
		return Uploaded{}, err
	}
	if b.uploader == nil {
		return Uploaded{}, errors.New("object storage is not configured")
	}

	key := ObjectKey(folder, f.Name, b.now())
	url, err := b.uploader.Upload(ctx, key, contentType, f.Data)
	if err != nil {
		return Uploaded{}, fmt.Errorf("failed to upload %s: %w", f.Name, err)
	}
	return Uploaded{Name: f.Name, URL: url, ContentType: contentType}, nil
}

func (b *Batch) UploadAll(ctx context.Context, folder string, files []File) Result {
	var result Result
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, Failure{Name: f.Name, Err: err})
			continue
		}

		uploaded, err := b.UploadOne(ctx, folder, f)
		if err != nil {
			b.logger.WithError(err).WithFields(logrus.Fields{
				"file":   f.Name,
				"size":   f.Size(),
				"folder": folder,
			}).Warn("Skipping file that failed to upload")
			result.Failures = append(result.Failures, Failure{Name: f.Name, Err: err})
			continue
		}

		b.logger.WithFields(logrus.Fields{
			"file": f.Name,
			"url":  uploaded.URL,
		}).Info("Uploaded file")
		result.Uploaded = append(result.Uploaded, uploaded)
	}
	return result
}
