package mediastore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

type localStore struct {
	log *logger.Logger
	dir string
}

// NewLocalStore serves blobs from a directory on disk. dir is created
// if it does not exist.
func NewLocalStore(log *logger.Logger, dir string) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("media dir required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve media dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &localStore{
		log: log.With("service", "LocalMediaStore"),
		dir: abs,
	}, nil
}

// resolve rejects locators that would escape the media directory.
func (s *localStore) resolve(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", ErrNotFound
	}
	if strings.Contains(locator, "..") || strings.ContainsRune(locator, 0) {
		return "", ErrNotFound
	}
	full := filepath.Join(s.dir, filepath.FromSlash(locator))
	rel, err := filepath.Rel(s.dir, full)
	if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", ErrNotFound
	}
	return full, nil
}

func (s *localStore) Save(ctx context.Context, locator string, r io.Reader) (int64, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return 0, fmt.Errorf("invalid locator %q", locator)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create blob dir: %w", err)
	}

	// Write to a temp file first so readers never observe a partial blob.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp blob: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("close temp blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("finalize blob: %w", err)
	}
	return n, nil
}

func (s *localStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

type sectionReadCloser struct {
	io.Reader
	closer io.Closer
}

func (s *sectionReadCloser) Close() error { return s.closer.Close() }

func (s *localStore) OpenRange(ctx context.Context, locator string, offset, length int64) (io.ReadCloser, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("seek blob: %w", err)
	}
	if length < 0 {
		return f, nil
	}
	return &sectionReadCloser{Reader: io.LimitReader(f, length), closer: f}, nil
}

func (s *localStore) Attrs(ctx context.Context, locator string) (*ObjectAttrs, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat blob: %w", err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}
	return &ObjectAttrs{
		Size:        info.Size(),
		ContentType: ContentTypeForLocator(locator),
		Updated:     info.ModTime(),
	}, nil
}

func (s *localStore) Delete(ctx context.Context, locator string) error {
	path, err := s.resolve(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
