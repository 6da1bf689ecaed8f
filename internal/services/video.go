package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisclient "github.com/klhlearn/peerlearn-backend/internal/clients/redis"
	"github.com/klhlearn/peerlearn-backend/internal/data/repos"
	"github.com/klhlearn/peerlearn-backend/internal/domain"
	"github.com/klhlearn/peerlearn-backend/internal/platform/apierr"
	"github.com/klhlearn/peerlearn-backend/internal/platform/dbctx"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
	"github.com/klhlearn/peerlearn-backend/internal/platform/mediastore"
)

// allowedUploadMimes is the accept list for incoming uploads. It is a
// subset of what the delivery path can serve; serving is driven by the
// locator extension, not by this list.
var allowedUploadMimes = map[string]bool{
	"video/mp4":       true,
	"video/mpeg":      true,
	"video/quicktime": true,
	"video/x-msvideo": true,
	"video/webm":      true,
}

// UploadInput is one multipart upload, already parsed by the handler.
// SizeBytes is the declared part size; the store reports the real count.
type UploadInput struct {
	Title       string
	Description string
	Subject     string
	Topic       string
	Tags        []string
	MimeType    string
	SizeBytes   int64
	Body        io.Reader
}

type VideoService interface {
	// Upload persists the blob, creates the asset record in pending
	// state, and enqueues one enrichment run. The returned record is
	// immediately streamable.
	Upload(ctx context.Context, uploaderID uuid.UUID, in UploadInput) (*domain.Video, error)
	GetByID(ctx context.Context, id uuid.UUID, bumpViews bool) (*domain.Video, error)
	GetEnrichment(ctx context.Context, videoID uuid.UUID) (*domain.Video, *domain.EnrichmentRun, error)
}

type videoService struct {
	db         *gorm.DB
	log        *logger.Logger
	videoRepo  repos.VideoRepo
	runRepo    repos.EnrichmentRunRepo
	store      mediastore.Store
	ownerIndex redisclient.OwnerIndex
	maxBytes   int64
}

func NewVideoService(
	db *gorm.DB,
	baseLog *logger.Logger,
	videoRepo repos.VideoRepo,
	runRepo repos.EnrichmentRunRepo,
	store mediastore.Store,
	ownerIndex redisclient.OwnerIndex,
	maxBytes int64,
) VideoService {
	return &videoService{
		db:         db,
		log:        baseLog.With("service", "VideoService"),
		videoRepo:  videoRepo,
		runRepo:    runRepo,
		store:      store,
		ownerIndex: ownerIndex,
		maxBytes:   maxBytes,
	}
}

func (s *videoService) Upload(ctx context.Context, uploaderID uuid.UUID, in UploadInput) (*domain.Video, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_title", fmt.Errorf("title is required"))
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" || !domain.IsValidSubject(subject) {
		return nil, apierr.New(http.StatusBadRequest, "invalid_subject", fmt.Errorf("subject %q is not recognized", in.Subject))
	}
	mimeType := strings.ToLower(strings.TrimSpace(in.MimeType))
	if !allowedUploadMimes[mimeType] {
		return nil, apierr.New(http.StatusUnsupportedMediaType, "unsupported_media_type", fmt.Errorf("mime type %q is not an accepted video format", in.MimeType))
	}
	if s.maxBytes > 0 && in.SizeBytes > s.maxBytes {
		return nil, apierr.New(http.StatusRequestEntityTooLarge, "payload_too_large", fmt.Errorf("declared size %d exceeds limit %d", in.SizeBytes, s.maxBytes))
	}
	if in.Body == nil {
		return nil, apierr.New(http.StatusBadRequest, "missing_file", fmt.Errorf("upload has no file part"))
	}

	videoID := uuid.New()
	locator := videoID.String() + mediastore.ExtensionForMime(mimeType)

	body := in.Body
	if s.maxBytes > 0 {
		// The declared size can lie; cap the actual stream too.
		body = io.LimitReader(body, s.maxBytes+1)
	}

	written, err := s.store.Save(ctx, locator, body)
	if err != nil {
		return nil, apierr.New(http.StatusBadGateway, "storage_write_failed", fmt.Errorf("save media blob: %w", err))
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		_ = s.store.Delete(ctx, locator)
		return nil, apierr.New(http.StatusRequestEntityTooLarge, "payload_too_large", fmt.Errorf("stream exceeded limit %d", s.maxBytes))
	}

	tagsJSON, err := json.Marshal(normalizeTags(in.Tags))
	if err != nil {
		_ = s.store.Delete(ctx, locator)
		return nil, apierr.New(http.StatusBadRequest, "invalid_tags", fmt.Errorf("encode tags: %w", err))
	}

	video := &domain.Video{
		ID:                 videoID,
		UploaderID:         uploaderID,
		Title:              title,
		Description:        strings.TrimSpace(in.Description),
		Subject:            subject,
		Topic:              strings.TrimSpace(in.Topic),
		Tags:               datatypes.JSON(tagsJSON),
		StorageKey:         locator,
		MimeType:           mimeType,
		SizeBytes:          written,
		TranscriptStatus:   domain.EnrichmentPending,
		SummaryStatus:      domain.EnrichmentPending,
		VisibleForPlayback: true,
	}

	// Record and run commit together; a record without a queued run
	// would never get enriched.
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.videoRepo.Create(dbc, []*domain.Video{video}); err != nil {
			return fmt.Errorf("create video record: %w", err)
		}
		run := &domain.EnrichmentRun{
			ID:      uuid.New(),
			VideoID: videoID,
			JobType: domain.JobTypeVideoEnrichment,
			Status:  domain.RunQueued,
			Stage:   "queued",
		}
		if _, err := s.runRepo.Create(dbc, []*domain.EnrichmentRun{run}); err != nil {
			return fmt.Errorf("enqueue enrichment run: %w", err)
		}
		return nil
	})
	if txErr != nil {
		_ = s.store.Delete(ctx, locator)
		return nil, apierr.New(http.StatusInternalServerError, "upload_persist_failed", txErr)
	}

	if s.ownerIndex != nil {
		if err := s.ownerIndex.AssociateUpload(ctx, uploaderID, videoID); err != nil {
			s.log.Warn("Owner index update failed", "video_id", videoID, "uploader_id", uploaderID, "error", err)
		}
	}

	s.log.Info("Video uploaded", "video_id", videoID, "locator", locator, "size_bytes", written, "mime_type", mimeType)
	return video, nil
}

func (s *videoService) GetByID(ctx context.Context, id uuid.UUID, bumpViews bool) (*domain.Video, error) {
	dbc := dbctx.Context{Ctx: ctx}
	videos, err := s.videoRepo.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "video_lookup_failed", err)
	}
	if len(videos) == 0 {
		return nil, apierr.New(http.StatusNotFound, "video_not_found", fmt.Errorf("video %s not found", id))
	}
	video := videos[0]
	if bumpViews {
		if err := s.videoRepo.IncrementViews(dbc, id); err != nil {
			s.log.Warn("View counter bump failed", "video_id", id, "error", err)
		} else {
			video.Views++
		}
	}
	return video, nil
}

func (s *videoService) GetEnrichment(ctx context.Context, videoID uuid.UUID) (*domain.Video, *domain.EnrichmentRun, error) {
	video, err := s.GetByID(ctx, videoID, false)
	if err != nil {
		return nil, nil, err
	}
	run, err := s.runRepo.GetLatestByVideoID(dbctx.Context{Ctx: ctx}, videoID)
	if err != nil {
		return nil, nil, apierr.New(http.StatusInternalServerError, "enrichment_lookup_failed", err)
	}
	return video, run, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
