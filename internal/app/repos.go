package app

import (
	"gorm.io/gorm"

	"github.com/klhlearn/peerlearn-backend/internal/data/repos"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

type Repos struct {
	Video         repos.VideoRepo
	EnrichmentRun repos.EnrichmentRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Video:         repos.NewVideoRepo(db, log),
		EnrichmentRun: repos.NewEnrichmentRunRepo(db, log),
	}
}
