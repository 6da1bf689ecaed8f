package app

import (
	"github.com/gin-gonic/gin"

	"github.com/klhlearn/peerlearn-backend/internal/http/middleware"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

type Middleware struct {
	Auth gin.HandlerFunc
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	return Middleware{
		Auth: middleware.RequireAuth(log, cfg.JWTSecretKey),
	}
}
