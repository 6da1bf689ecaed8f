package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/klhlearn/peerlearn-backend/internal/domain"
	"github.com/klhlearn/peerlearn-backend/internal/http/response"
	"github.com/klhlearn/peerlearn-backend/internal/platform/ctxutil"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
	"github.com/klhlearn/peerlearn-backend/internal/platform/mediastore"
	"github.com/klhlearn/peerlearn-backend/internal/services"
)

type VideoHandler struct {
	log      *logger.Logger
	videoSvc services.VideoService
}

func NewVideoHandler(baseLog *logger.Logger, videoSvc services.VideoService) *VideoHandler {
	return &VideoHandler{log: baseLog.With("handler", "VideoHandler"), videoSvc: videoSvc}
}

type videoResponse struct {
	Video    *domain.Video `json:"video"`
	MediaURL string        `json:"media_url"`
}

func mediaURL(storageKey string) string {
	return "/media/" + storageKey
}

// Upload handles POST /media. Multipart form: file part "video" plus
// title, description, subject, topic and a comma separated tags field.
func (h *VideoHandler) Upload(c *gin.Context) {
	rd, ok := ctxutil.GetRequestData(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "missing_token", errors.New("request has no authenticated user"))
		return
	}

	fileHeader, err := c.FormFile("video")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("multipart part %q missing: %w", "video", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mediastore.ContentTypeForLocator(fileHeader.Filename)
	}

	var tags []string
	if raw := strings.TrimSpace(c.PostForm("tags")); raw != "" {
		tags = strings.Split(raw, ",")
	}

	video, err := h.videoSvc.Upload(c.Request.Context(), rd.UserID, services.UploadInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Subject:     c.PostForm("subject"),
		Topic:       c.PostForm("topic"),
		Tags:        tags,
		MimeType:    mimeType,
		SizeBytes:   fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	response.RespondOK(c, http.StatusCreated, videoResponse{Video: video, MediaURL: mediaURL(video.StorageKey)})
}

// Get handles GET /api/videos/:id and counts the read as a view.
func (h *VideoHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_video_id", err)
		return
	}
	video, err := h.videoSvc.GetByID(c.Request.Context(), id, true)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, http.StatusOK, videoResponse{Video: video, MediaURL: mediaURL(video.StorageKey)})
}

type enrichmentResponse struct {
	VideoID          uuid.UUID             `json:"video_id"`
	TranscriptStatus string                `json:"transcript_status"`
	SummaryStatus    string                `json:"summary_status"`
	Transcript       string                `json:"transcript,omitempty"`
	Summary          string                `json:"summary,omitempty"`
	LatestRun        *domain.EnrichmentRun `json:"latest_run,omitempty"`
}

// GetEnrichment handles GET /api/videos/:id/enrichment.
func (h *VideoHandler) GetEnrichment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_video_id", err)
		return
	}
	video, run, err := h.videoSvc.GetEnrichment(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, http.StatusOK, enrichmentResponse{
		VideoID:          video.ID,
		TranscriptStatus: video.TranscriptStatus,
		SummaryStatus:    video.SummaryStatus,
		Transcript:       video.Transcript,
		Summary:          video.Summary,
		LatestRun:        run,
	})
}
