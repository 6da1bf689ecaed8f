package mediastore

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Mode selects which backing store serves media blobs.
type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCS   Mode = "gcs"
)

func IsSupportedMode(m Mode) bool {
	switch m {
	case ModeLocal, ModeGCS:
		return true
	}
	return false
}

// ErrNotFound is returned when a locator has no backing blob.
var ErrNotFound = errors.New("media object not found")

// ObjectAttrs describes a stored blob.
type ObjectAttrs struct {
	Size        int64
	ContentType string
	Updated     time.Time
}

// Store is the named-blob abstraction behind both the upload write path
// and the streaming read path. Blobs are written exactly once at upload
// time and only ever read afterward, so readers need no coordination.
type Store interface {
	// Save streams r into the blob named by locator and reports the
	// number of bytes written.
	Save(ctx context.Context, locator string, r io.Reader) (int64, error)
	// Open returns a reader over the whole blob.
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	// OpenRange returns a reader over length bytes starting at offset.
	// length < 0 means "through end of blob".
	OpenRange(ctx context.Context, locator string, offset, length int64) (io.ReadCloser, error)
	// Attrs stats the blob. Returns ErrNotFound for unknown locators.
	Attrs(ctx context.Context, locator string) (*ObjectAttrs, error)
	// Delete removes the blob. Used only to roll back a failed upload.
	Delete(ctx context.Context, locator string) error
}

// URISource is implemented by stores whose blobs are addressable by
// external collaborators (the speech provider reads gs:// URIs
// directly instead of streaming bytes through this process).
type URISource interface {
	ObjectURI(locator string) string
}

// videoMimeTypes is the fixed extension lookup the player-facing
// endpoints use. Unknown extensions deliberately fall back to mp4.
var videoMimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".webm": "video/webm",
}

// ContentTypeForLocator maps a locator's extension to a video MIME type.
func ContentTypeForLocator(locator string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(locator)))
	if ct, ok := videoMimeTypes[ext]; ok {
		return ct
	}
	return "video/mp4"
}

// ExtensionForMime is the inverse lookup used when minting locators.
func ExtensionForMime(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "video/x-msvideo":
		return ".avi"
	case "video/mpeg":
		return ".mpeg"
	case "video/webm":
		return ".webm"
	default:
		return ".mp4"
	}
}
