package app

import (
	"fmt"
	"strings"

	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
	"github.com/klhlearn/peerlearn-backend/internal/platform/mediastore"
)

// resolveMediaStore picks the blob backend from config. Unknown modes
// fail startup rather than silently serving from the wrong place.
func resolveMediaStore(log *logger.Logger, cfg Config) (mediastore.Store, error) {
	mode := mediastore.Mode(strings.TrimSpace(strings.ToLower(cfg.StorageMode)))
	if !mediastore.IsSupportedMode(mode) {
		return nil, fmt.Errorf("unsupported MEDIA_STORAGE_MODE %q (want %q or %q)", cfg.StorageMode, mediastore.ModeLocal, mediastore.ModeGCS)
	}
	switch mode {
	case mediastore.ModeGCS:
		return mediastore.NewGCSStore(log)
	default:
		return mediastore.NewLocalStore(log, cfg.MediaDir)
	}
}
