package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/klhlearn/peerlearn-backend/internal/domain"
	"github.com/klhlearn/peerlearn-backend/internal/platform/dbctx"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

type VideoRepo interface {
	Create(dbc dbctx.Context, videos []*domain.Video) ([]*domain.Video, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Video, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	IncrementViews(dbc dbctx.Context, id uuid.UUID) error

	// ApplyEnrichment is the job's terminal write. It only lands when
	// expectedVersion still matches, bumping enrich_version; a false
	// return means another job instance won the race and the caller
	// should reload and retry (or accept last-write-wins).
	ApplyEnrichment(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error)
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{db: db, log: baseLog.With("repo", "VideoRepo")}
}

func (r *videoRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *videoRepo) Create(dbc dbctx.Context, videos []*domain.Video) ([]*domain.Video, error) {
	if len(videos) == 0 {
		return []*domain.Video{}, nil
	}
	if err := r.handle(dbc).Create(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

func (r *videoRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Video, error) {
	var out []*domain.Video
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.handle(dbc).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *videoRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.handle(dbc).
		Model(&domain.Video{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *videoRepo) IncrementViews(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return r.handle(dbc).
		Model(&domain.Video{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"views":      gorm.Expr("views + 1"),
			"updated_at": time.Now(),
		}).Error
}

func (r *videoRepo) ApplyEnrichment(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["enrich_version"] = gorm.Expr("enrich_version + 1")
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := r.handle(dbc).
		Model(&domain.Video{}).
		Where("id = ? AND enrich_version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
