package mediastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

type gcsStore struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

// NewGCSStore serves blobs out of a single GCS bucket named by
// MEDIA_GCS_BUCKET_NAME. Credentials resolve through the standard
// GOOGLE_APPLICATION_CREDENTIALS chain.
func NewGCSStore(log *logger.Logger) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	bucket := strings.TrimSpace(os.Getenv("MEDIA_GCS_BUCKET_NAME"))
	if bucket == "" {
		return nil, fmt.Errorf("missing env var MEDIA_GCS_BUCKET_NAME")
	}

	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if host := strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")); host != "" {
		opts = []option.ClientOption{option.WithoutAuthentication()}
	}

	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	serviceLog := log.With("service", "GCSMediaStore")
	serviceLog.Info("GCS media store initialized", "bucket", bucket)
	return &gcsStore{log: serviceLog, client: client, bucket: bucket}, nil
}

func (s *gcsStore) object(locator string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(locator)
}

func (s *gcsStore) ObjectURI(locator string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, locator)
}

func (s *gcsStore) Save(ctx context.Context, locator string, r io.Reader) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	w := s.object(locator).NewWriter(ctx)
	w.ContentType = ContentTypeForLocator(locator)
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("close object writer: %w", err)
	}
	return n, nil
}

// readCloserWithCancel ties the reader's lifetime to its timeout
// context. Cancelling before the caller reads would truncate the body,
// so the cancel runs on Close instead.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (s *gcsStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Minute)
	r, err := s.object(locator).NewReader(ctx2)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open object reader: %w", err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (s *gcsStore) OpenRange(ctx context.Context, locator string, offset, length int64) (io.ReadCloser, error) {
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Minute)
	r, err := s.object(locator).NewRangeReader(ctx2, offset, length)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open object range reader: %w", err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (s *gcsStore) Attrs(ctx context.Context, locator string) (*ObjectAttrs, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	attrs, err := s.object(locator).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch object attrs: %w", err)
	}
	contentType := attrs.ContentType
	if contentType == "" {
		contentType = ContentTypeForLocator(locator)
	}
	return &ObjectAttrs{
		Size:        attrs.Size,
		ContentType: contentType,
		Updated:     attrs.Updated,
	}, nil
}

func (s *gcsStore) Delete(ctx context.Context, locator string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.object(locator).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("delete object %q: %w", locator, err)
	}
	return nil
}
