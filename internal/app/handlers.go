package app

import (
	"github.com/klhlearn/peerlearn-backend/internal/http/handlers"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

type Handlers struct {
	Media  *handlers.MediaHandler
	Video  *handlers.VideoHandler
	Health *handlers.HealthHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	return Handlers{
		Media:  handlers.NewMediaHandler(log, serviceset.Store),
		Video:  handlers.NewVideoHandler(log, serviceset.Video),
		Health: handlers.NewHealthHandler(),
	}
}
