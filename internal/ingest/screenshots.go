package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/damoang/angple-bugreport/internal/screenshot"
	"github.com/damoang/angple-bugreport/pkg/storage"
)

// ObjectStore is the part of the S3 client the screenshot store uses
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*storage.UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// ScreenshotStore moves data URI screenshots into object storage
type ScreenshotStore struct {
	store  ObjectStore
	prefix string
}

// NewScreenshotStore creates a store uploading under prefix
func NewScreenshotStore(store ObjectStore, prefix string) *ScreenshotStore {
	if prefix == "" {
		prefix = "bug-reports"
	}
	return &ScreenshotStore{store: store, prefix: prefix}
}

// Offload uploads the inline screenshot of r and replaces it with its URL.
// It returns the object key, or "" when r had no inline screenshot.
func (s *ScreenshotStore) Offload(ctx context.Context, r *Record) (string, error) {
	if r.Screenshot == nil {
		return "", nil
	}
	raw, err := screenshot.DataURIBytes(*r.Screenshot)
	if err != nil {
		return "", err
	}

	key := storage.GenerateKey(s.prefix, r.ReportID+".jpg", r.CreatedAt)
	res, err := s.store.Upload(ctx, key, bytes.NewReader(raw), "image/jpeg", int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("screenshot upload failed: %w", err)
	}

	url := res.PublicURL()
	r.ScreenshotURL = &url
	r.Screenshot = nil
	return key, nil
}

// Discard removes an uploaded screenshot whose report was not stored
func (s *ScreenshotStore) Discard(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("screenshot delete failed: %w", err)
	}
	return nil
}
