package services

import (
	"fmt"

	"github.com/google/uuid"

	redisclient "github.com/klhlearn/peerlearn-backend/internal/clients/redis"
	"github.com/klhlearn/peerlearn-backend/internal/data/repos"
	"github.com/klhlearn/peerlearn-backend/internal/domain"
	"github.com/klhlearn/peerlearn-backend/internal/jobs"
	"github.com/klhlearn/peerlearn-backend/internal/platform/dbctx"
	"github.com/klhlearn/peerlearn-backend/internal/platform/gemini"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
	"github.com/klhlearn/peerlearn-backend/internal/platform/mediastore"
	"github.com/klhlearn/peerlearn-backend/internal/platform/speech"
)

// casRetries bounds the reload-and-retry loop on the terminal write
// before falling back to last-write-wins.
const casRetries = 3

// EnrichmentService is the job handler behind JobTypeVideoEnrichment.
// It derives a transcript and summary for one video and lands them in a
// single terminal write. Collaborator failures degrade to fallback
// text rather than failing the run; only a missing video record fails.
type EnrichmentService struct {
	log           *logger.Logger
	videoRepo     repos.VideoRepo
	transcriptSvc TranscriptService
	textClient    gemini.TextClient
	speech        speech.Provider
	store         mediastore.Store
	ownerIndex    redisclient.OwnerIndex
}

func NewEnrichmentService(
	baseLog *logger.Logger,
	videoRepo repos.VideoRepo,
	transcriptSvc TranscriptService,
	textClient gemini.TextClient,
	speechProvider speech.Provider,
	store mediastore.Store,
	ownerIndex redisclient.OwnerIndex,
) *EnrichmentService {
	return &EnrichmentService{
		log:           baseLog.With("service", "EnrichmentService"),
		videoRepo:     videoRepo,
		transcriptSvc: transcriptSvc,
		textClient:    textClient,
		speech:        speechProvider,
		store:         store,
		ownerIndex:    ownerIndex,
	}
}

var _ jobs.Handler = (*EnrichmentService)(nil)

func (s *EnrichmentService) Run(jc *jobs.Context) {
	run := jc.Run()
	dbc := dbctx.Context{Ctx: jc.Ctx()}

	videos, err := s.videoRepo.GetByIDs(dbc, []uuid.UUID{run.VideoID})
	if err != nil {
		jc.Fail("load", fmt.Errorf("load video %s: %w", run.VideoID, err))
		return
	}
	if len(videos) == 0 {
		jc.Fail("load", fmt.Errorf("video %s no longer exists", run.VideoID))
		return
	}
	video := videos[0]

	// Best effort; the statuses exist for readers polling mid-run.
	if err := s.videoRepo.UpdateFields(dbc, video.ID, map[string]interface{}{
		"transcript_status": domain.EnrichmentProcessing,
		"summary_status":    domain.EnrichmentProcessing,
	}); err != nil {
		s.log.Warn("Could not mark video processing", "video_id", video.ID, "error", err)
	}

	jc.Progress("transcript")
	transcript := s.deriveTranscript(jc, video)

	jc.Progress("summary")
	summary := s.deriveSummary(jc, video, transcript)

	jc.Progress("finalize")
	if err := s.applyTerminal(jc, video, transcript, summary); err != nil {
		jc.Fail("finalize", err)
		return
	}

	if s.ownerIndex != nil {
		if err := s.ownerIndex.PublishEnriched(jc.Ctx(), video.ID, domain.EnrichmentCompleted, domain.EnrichmentCompleted); err != nil {
			s.log.Warn("Enriched event publish failed", "video_id", video.ID, "error", err)
		}
	}

	s.log.Info("Video enriched", "video_id", video.ID, "run_id", run.ID, "attempts", run.Attempts)
	jc.Succeed()
}

// deriveTranscript tries real speech-to-text when the store exposes
// externally addressable URIs, then the subject heuristic, then the
// fallback text. It never returns empty.
func (s *EnrichmentService) deriveTranscript(jc *jobs.Context, video *domain.Video) string {
	if s.speech != nil {
		if src, ok := s.store.(mediastore.URISource); ok {
			uri := src.ObjectURI(video.StorageKey)
			text, err := s.speech.TranscribeURI(jc.Ctx(), uri)
			if err == nil && text != "" {
				return text
			}
			s.log.Warn("Speech transcription unavailable, using heuristic", "video_id", video.ID, "error", err)
		}
	}

	text, err := s.transcriptSvc.Derive(video)
	if err != nil {
		s.log.Warn("Transcript heuristic failed, using fallback", "video_id", video.ID, "error", err)
		return s.transcriptSvc.FallbackTranscript(video.Title, video.Description)
	}
	return text
}

func (s *EnrichmentService) deriveSummary(jc *jobs.Context, video *domain.Video, transcript string) string {
	if s.textClient == nil {
		return s.transcriptSvc.FallbackSummary(video.Title)
	}
	summary, err := s.textClient.GenerateSummary(jc.Ctx(), transcript, video.Title)
	if err != nil || summary == "" {
		s.log.Warn("Summary generation failed, using fallback", "video_id", video.ID, "error", err)
		return s.transcriptSvc.FallbackSummary(video.Title)
	}
	return summary
}

// applyTerminal lands the single completing write. Both statuses go to
// completed regardless of which path produced the text; duplicate job
// instances are resolved through the record's enrich_version, with
// last-write-wins if the version keeps moving under us.
func (s *EnrichmentService) applyTerminal(jc *jobs.Context, video *domain.Video, transcript, summary string) error {
	dbc := dbctx.Context{Ctx: jc.Ctx()}
	updates := map[string]interface{}{
		"transcript":        transcript,
		"summary":           summary,
		"transcript_status": domain.EnrichmentCompleted,
		"summary_status":    domain.EnrichmentCompleted,
	}

	expected := video.EnrichVersion
	for i := 0; i < casRetries; i++ {
		applied, err := s.videoRepo.ApplyEnrichment(dbc, video.ID, expected, copyUpdates(updates))
		if err != nil {
			return fmt.Errorf("apply enrichment: %w", err)
		}
		if applied {
			return nil
		}
		fresh, err := s.videoRepo.GetByIDs(dbc, []uuid.UUID{video.ID})
		if err != nil {
			return fmt.Errorf("reload video after version conflict: %w", err)
		}
		if len(fresh) == 0 {
			return fmt.Errorf("video %s disappeared during enrichment", video.ID)
		}
		expected = fresh[0].EnrichVersion
	}

	s.log.Warn("Enrichment version kept moving, applying last write", "video_id", video.ID)
	if err := s.videoRepo.UpdateFields(dbc, video.ID, copyUpdates(updates)); err != nil {
		return fmt.Errorf("apply enrichment (last write): %w", err)
	}
	return nil
}

// copyUpdates guards against gorm mutating the shared map between
// attempts (ApplyEnrichment injects the version expression).
func copyUpdates(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
