package mediastore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	store, err := NewLocalStore(log, t.TempDir())
	if err != nil {
		t.Fatalf("init local store: %v", err)
	}
	return store
}

func TestLocalStoreSaveAndOpen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	payload := []byte("0123456789abcdef")

	n, err := store.Save(ctx, "clip.mp4", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if n != int64(len(payload)) {
		t.Fatalf("save reported %d bytes, want %d", n, len(payload))
	}

	rc, err := store.Open(ctx, "clip.mp4")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %q want %q", got, payload)
	}
}

func TestLocalStoreOpenRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	payload := []byte("0123456789abcdef")
	if _, err := store.Save(ctx, "clip.mp4", bytes.NewReader(payload)); err != nil {
		t.Fatalf("save: %v", err)
	}

	cases := []struct {
		name   string
		offset int64
		length int64
		want   string
	}{
		{"middle", 4, 4, "4567"},
		{"to_end", 10, -1, "abcdef"},
		{"from_start", 0, 3, "012"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rc, err := store.OpenRange(ctx, "clip.mp4", tc.offset, tc.length)
			if err != nil {
				t.Fatalf("open range: %v", err)
			}
			defer rc.Close()
			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("range read got %q want %q", got, tc.want)
			}
		})
	}
}

func TestLocalStoreAttrsAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Save(ctx, "clip.mp4", bytes.NewReader([]byte("data"))); err != nil {
		t.Fatalf("save: %v", err)
	}

	attrs, err := store.Attrs(ctx, "clip.mp4")
	if err != nil {
		t.Fatalf("attrs: %v", err)
	}
	if attrs.Size != 4 {
		t.Fatalf("attrs size = %d, want 4", attrs.Size)
	}

	if err := store.Delete(ctx, "clip.mp4"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Attrs(ctx, "clip.mp4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("attrs after delete: got %v, want ErrNotFound", err)
	}
	// Delete of a missing blob is not an error.
	if err := store.Delete(ctx, "clip.mp4"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, locator := range []string{"../escape.mp4", "a/../../b.mp4", ""} {
		if _, err := store.Open(ctx, locator); !errors.Is(err, ErrNotFound) {
			t.Fatalf("open %q: got %v, want ErrNotFound", locator, err)
		}
	}
}

func TestContentTypeForLocator(t *testing.T) {
	cases := map[string]string{
		"a.mp4":     "video/mp4",
		"a.mov":     "video/quicktime",
		"a.avi":     "video/x-msvideo",
		"a.mpeg":    "video/mpeg",
		"a.mpg":     "video/mpeg",
		"a.webm":    "video/webm",
		"a.unknown": "video/mp4",
		"noext":     "video/mp4",
	}
	for locator, want := range cases {
		if got := ContentTypeForLocator(locator); got != want {
			t.Fatalf("ContentTypeForLocator(%q) = %q, want %q", locator, got, want)
		}
	}
}

func TestExtensionForMime(t *testing.T) {
	if got := ExtensionForMime("video/quicktime"); got != ".mov" {
		t.Fatalf("ExtensionForMime(video/quicktime) = %q, want .mov", got)
	}
	if got := ExtensionForMime("application/pdf"); got != ".mp4" {
		t.Fatalf("ExtensionForMime fallback = %q, want .mp4", got)
	}
}
