// Package storage persists uploaded profile media (institute logos, student
// photos) on local disk or in an S3 compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	apperrors "github.com/campusbridge/onboard/pkg/errors"
)

// DefaultMaxUploadBytes bounds a single upload when no limit is configured.
const DefaultMaxUploadBytes int64 = 5 << 20

var (
	ErrEmptyUpload      = apperrors.New("EMPTY_UPLOAD", "The uploaded file is empty", http.StatusBadRequest)
	ErrFileTooLarge     = apperrors.New("FILE_TOO_LARGE", "The uploaded file is too large", http.StatusRequestEntityTooLarge)
	ErrUnsupportedMedia = apperrors.New("UNSUPPORTED_MEDIA_TYPE", "Only PNG, JPEG and WebP images are accepted", http.StatusUnsupportedMediaType)
)

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// Store writes objects and reports their public URL.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Object describes a stored upload.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// Uploader validates image uploads before handing them to a Store.
type Uploader struct {
	store    Store
	maxBytes int64
}

// NewUploader wraps store. maxBytes <= 0 selects DefaultMaxUploadBytes.
func NewUploader(store Store, maxBytes int64) (*Uploader, error) {
	if store == nil {
		return nil, errors.New("storage: store is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Uploader{store: store, maxBytes: maxBytes}, nil
}

// MaxBytes reports the upload size limit.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// UploadImage reads at most MaxBytes from body, checks the content is a
// supported image and stores it under prefix with a random name.
func (u *Uploader) UploadImage(ctx context.Context, prefix string, body io.Reader) (Object, error) {
	data, err := io.ReadAll(io.LimitReader(body, u.maxBytes+1))
	if err != nil {
		return Object{}, fmt.Errorf("storage: read upload: %w", err)
	}
	if len(data) == 0 {
		return Object{}, ErrEmptyUpload
	}
	if int64(len(data)) > u.maxBytes {
		return Object{}, ErrFileTooLarge
	}

	contentType, ext, err := DetectImage(data)
	if err != nil {
		return Object{}, err
	}

	key := ObjectKey(prefix, ext)
	url, err := u.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: url, ContentType: contentType, Size: int64(len(data))}, nil
}

// Remove deletes a previously stored object.
func (u *Uploader) Remove(ctx context.Context, object Object) error {
	return u.store.Delete(ctx, object.Key)
}

// DetectImage sniffs data and returns its MIME type and file extension.
func DetectImage(data []byte) (string, string, error) {
	detected := mimetype.Detect(data)
	for mt := detected; mt != nil; mt = mt.Parent() {
		if ext, ok := allowedImageTypes[mt.String()]; ok {
			return mt.String(), ext, nil
		}
	}
	return "", "", ErrUnsupportedMedia.WithMessage(
		fmt.Sprintf("Only PNG, JPEG and WebP images are accepted, got %s", detected.String()))
}

// ObjectKey builds "<prefix>/<uuid><ext>".
func ObjectKey(prefix, ext string) string {
	prefix = strings.Trim(path.Clean("/"+prefix), "/")
	name := uuid.NewString() + ext
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
