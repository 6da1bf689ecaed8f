package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/klhlearn/peerlearn-backend/internal/http/response"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
	"github.com/klhlearn/peerlearn-backend/internal/platform/mediastore"
)

// MediaHandler serves stored blobs over HTTP with single byte-range
// support, enough for <video> seeking in every mainstream browser.
type MediaHandler struct {
	log   *logger.Logger
	store mediastore.Store
}

func NewMediaHandler(baseLog *logger.Logger, store mediastore.Store) *MediaHandler {
	return &MediaHandler{log: baseLog.With("handler", "MediaHandler"), store: store}
}

// byteRange is a resolved, satisfiable request range.
type byteRange struct {
	start int64
	end   int64 // inclusive
}

func (r byteRange) length() int64 { return r.end - r.start + 1 }

// parseByteRangeHeader resolves a Range header against a blob of the
// given size. Returns (nil, true) when the header is absent or uses a
// unit we do not serve, meaning "send the whole thing". Returns
// (nil, false) when the header parses but no byte is satisfiable.
func parseByteRangeHeader(header string, size int64) (*byteRange, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, true
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, true
	}
	// Multi-range requests are not worth the multipart response; serve
	// the first range only, like the reference player expects.
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, false
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	// Suffix form "bytes=-N": the final N bytes.
	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, false
		}
		start := size - n
		if start < 0 {
			start = 0
		}
		if size == 0 {
			return nil, false
		}
		return &byteRange{start: start, end: size - 1}, true
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return nil, false
	}
	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, false
		}
		if end > size-1 {
			end = size - 1
		}
	}
	return &byteRange{start: start, end: end}, true
}

// StreamMedia handles GET /media/:locator.
func (h *MediaHandler) StreamMedia(c *gin.Context) {
	locator := c.Param("locator")
	ctx := c.Request.Context()

	attrs, err := h.store.Attrs(ctx, locator)
	if err != nil {
		if errors.Is(err, mediastore.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "media_not_found", fmt.Errorf("no media at %q", locator))
			return
		}
		h.log.Error("Media stat failed", "locator", locator, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "media_stat_failed", err)
		return
	}

	contentType := mediastore.ContentTypeForLocator(locator)
	c.Header("Accept-Ranges", "bytes")

	rng, satisfiable := parseByteRangeHeader(c.GetHeader("Range"), attrs.Size)
	if !satisfiable {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", attrs.Size))
		response.RespondError(c, http.StatusRequestedRangeNotSatisfiable, "range_not_satisfiable", fmt.Errorf("range %q not satisfiable against %d bytes", c.GetHeader("Range"), attrs.Size))
		return
	}

	if rng == nil {
		rc, err := h.store.Open(ctx, locator)
		if err != nil {
			h.log.Error("Media open failed", "locator", locator, "error", err)
			response.RespondError(c, http.StatusInternalServerError, "media_open_failed", err)
			return
		}
		defer rc.Close()
		c.DataFromReader(http.StatusOK, attrs.Size, contentType, rc, nil)
		return
	}

	rc, err := h.store.OpenRange(ctx, locator, rng.start, rng.length())
	if err != nil {
		h.log.Error("Media range open failed", "locator", locator, "start", rng.start, "end", rng.end, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "media_open_failed", err)
		return
	}
	defer rc.Close()

	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, attrs.Size))
	c.DataFromReader(http.StatusPartialContent, rng.length(), contentType, rc, nil)
}
