package app

import (
	"fmt"

	"gorm.io/gorm"

	redisclient "github.com/klhlearn/peerlearn-backend/internal/clients/redis"
	"github.com/klhlearn/peerlearn-backend/internal/domain"
	"github.com/klhlearn/peerlearn-backend/internal/jobs"
	"github.com/klhlearn/peerlearn-backend/internal/platform/gemini"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
	"github.com/klhlearn/peerlearn-backend/internal/platform/mediastore"
	"github.com/klhlearn/peerlearn-backend/internal/platform/speech"
	"github.com/klhlearn/peerlearn-backend/internal/services"
)

type Services struct {
	Video      services.VideoService
	Transcript services.TranscriptService
	Enrichment *services.EnrichmentService

	Store      mediastore.Store
	OwnerIndex redisclient.OwnerIndex
	Speech     speech.Provider

	JobWorker *jobs.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	store, err := resolveMediaStore(log, cfg)
	if err != nil {
		return Services{}, fmt.Errorf("init media store: %w", err)
	}

	var ownerIndex redisclient.OwnerIndex
	if cfg.RedisEnabled {
		ownerIndex, err = redisclient.NewOwnerIndex(log)
		if err != nil {
			return Services{}, fmt.Errorf("init owner index: %w", err)
		}
	} else {
		log.Warn("REDIS_ADDR not set, owner index and event publish disabled")
	}

	var textClient gemini.TextClient
	if cfg.GeminiEnabled {
		textClient, err = gemini.New(log)
		if err != nil {
			return Services{}, fmt.Errorf("init gemini client: %w", err)
		}
	} else {
		log.Warn("GEMINI_API_KEY not set, summaries will use fallback text")
	}

	var speechProvider speech.Provider
	if cfg.SpeechEnabled && cfg.StorageMode == string(mediastore.ModeGCS) {
		speechProvider, err = speech.NewProvider(log)
		if err != nil {
			return Services{}, fmt.Errorf("init speech provider: %w", err)
		}
	}

	transcriptSvc := services.NewTranscriptService(log)
	videoSvc := services.NewVideoService(db, log, reposet.Video, reposet.EnrichmentRun, store, ownerIndex, cfg.MaxUploadBytes)
	enrichmentSvc := services.NewEnrichmentService(log, reposet.Video, transcriptSvc, textClient, speechProvider, store, ownerIndex)

	registry := jobs.NewRegistry()
	registry.Register(domain.JobTypeVideoEnrichment, enrichmentSvc)

	worker := jobs.NewWorker(log, reposet.EnrichmentRun, registry, jobs.Policy{
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.MaxAttempts,
		RetryDelay:   cfg.RetryDelay,
		StaleRunning: cfg.StaleRunning,
	})

	return Services{
		Video:      videoSvc,
		Transcript: transcriptSvc,
		Enrichment: enrichmentSvc,
		Store:      store,
		OwnerIndex: ownerIndex,
		Speech:     speechProvider,
		JobWorker:  worker,
	}, nil
}
