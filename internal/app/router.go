package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// multipart framing on top of the actual file bytes
const uploadOverheadBytes = 10 * 1024 * 1024

func wireRouter(cfg Config, handlerset Handlers, mw Middleware) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Range"},
		ExposeHeaders:    []string{"Content-Length", "Content-Range", "Accept-Ranges"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthcheck", handlerset.Health.Check)

	// Playback is public; the locator is the only capability needed.
	router.GET("/media/:locator", handlerset.Media.StreamMedia)

	router.POST("/media", limitBody(cfg.MaxUploadBytes+uploadOverheadBytes), mw.Auth, handlerset.Video.Upload)

	api := router.Group("/api")
	{
		api.GET("/videos/:id", handlerset.Video.Get)
		api.GET("/videos/:id/enrichment", handlerset.Video.GetEnrichment)
	}

	return router
}

func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
