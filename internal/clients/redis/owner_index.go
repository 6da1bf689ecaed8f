package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

// OwnerIndex is the external "who uploaded what" association. Upload
// notifies it after creating a record; failures are the caller's to log
// and swallow, never to surface to the uploader.
type OwnerIndex interface {
	AssociateUpload(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error
	PublishEnriched(ctx context.Context, videoID uuid.UUID, transcriptStatus, summaryStatus string) error
	Close() error
}

type ownerIndex struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewOwnerIndex(log *logger.Logger) (OwnerIndex, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	channel := strings.TrimSpace(os.Getenv("REDIS_ENRICHMENT_CHANNEL"))
	if channel == "" {
		channel = "video.enriched"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &ownerIndex{
		log:     log.With("service", "RedisOwnerIndex"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func uploadsKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s:uploads", userID)
}

func (o *ownerIndex) AssociateUpload(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error {
	if o == nil || o.rdb == nil {
		return fmt.Errorf("owner index not initialized")
	}
	if userID == uuid.Nil || videoID == uuid.Nil {
		return fmt.Errorf("user id and video id required")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.rdb.SAdd(ctx, uploadsKey(userID), videoID.String()).Err()
}

type enrichedEvent struct {
	VideoID          string `json:"video_id"`
	TranscriptStatus string `json:"transcript_status"`
	SummaryStatus    string `json:"summary_status"`
	At               string `json:"at"`
}

func (o *ownerIndex) PublishEnriched(ctx context.Context, videoID uuid.UUID, transcriptStatus, summaryStatus string) error {
	if o == nil || o.rdb == nil {
		return fmt.Errorf("owner index not initialized")
	}
	raw, err := json.Marshal(enrichedEvent{
		VideoID:          videoID.String(),
		TranscriptStatus: transcriptStatus,
		SummaryStatus:    summaryStatus,
		At:               time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.rdb.Publish(ctx, o.channel, raw).Err()
}

func (o *ownerIndex) Close() error {
	if o == nil || o.rdb == nil {
		return nil
	}
	return o.rdb.Close()
}
