package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/klhlearn/peerlearn-backend/internal/domain"
	"github.com/klhlearn/peerlearn-backend/internal/platform/dbctx"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

type EnrichmentRunRepo interface {
	Create(dbc dbctx.Context, runs []*domain.EnrichmentRun) ([]*domain.EnrichmentRun, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.EnrichmentRun, error)
	GetLatestByVideoID(dbc dbctx.Context, videoID uuid.UUID) (*domain.EnrichmentRun, error)

	// ClaimNextRunnable picks the oldest run that is:
	// - queued, or
	// - failed with attempts < maxAttempts and last_error_at older than
	//   retryDelay, or
	// - running with a heartbeat staler than staleRunning (crash recovery)
	// and marks it running, incrementing attempts.
	ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*domain.EnrichmentRun, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
}

type enrichmentRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrichmentRunRepo(db *gorm.DB, baseLog *logger.Logger) EnrichmentRunRepo {
	return &enrichmentRunRepo{db: db, log: baseLog.With("repo", "EnrichmentRunRepo")}
}

func (r *enrichmentRunRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *enrichmentRunRepo) Create(dbc dbctx.Context, runs []*domain.EnrichmentRun) ([]*domain.EnrichmentRun, error) {
	if len(runs) == 0 {
		return []*domain.EnrichmentRun{}, nil
	}
	if err := r.handle(dbc).Create(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *enrichmentRunRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.EnrichmentRun, error) {
	var out []*domain.EnrichmentRun
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

func (r *enrichmentRunRepo) GetLatestByVideoID(dbc dbctx.Context, videoID uuid.UUID) (*domain.EnrichmentRun, error) {
	if videoID == uuid.Nil {
		return nil, nil
	}
	var run domain.EnrichmentRun
	err := r.handle(dbc).
		Where("video_id = ?", videoID).
		Order("created_at DESC").
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *enrichmentRunRepo) ClaimNextRunnable(
	dbc dbctx.Context,
	maxAttempts int,
	retryDelay time.Duration,
	staleRunning time.Duration,
) (*domain.EnrichmentRun, error) {
	base := r.handle(dbc)

	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)

	var claimed *domain.EnrichmentRun

	err := base.Transaction(func(tx *gorm.DB) error {
		var run domain.EnrichmentRun

		q := tx.Where(`
			(
				status = ?
				OR (
					status = ?
					AND attempts < ?
					AND (last_error_at IS NULL OR last_error_at < ?)
				)
				OR (
					status = ?
					AND heartbeat_at IS NOT NULL
					AND heartbeat_at < ?
				)
			)
		`, domain.RunQueued, domain.RunFailed, maxAttempts, retryCutoff, domain.RunRunning, staleCutoff).
			Order("created_at ASC")

		// SKIP LOCKED keeps concurrent workers off the same row; sqlite
		// (tests) has no row locks, its single writer serializes anyway.
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		qErr := q.First(&run).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}

		uErr := tx.Model(&domain.EnrichmentRun{}).
			Where("id = ?", run.ID).
			Updates(map[string]interface{}{
				"status":       domain.RunRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}

		claimed = &run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *enrichmentRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&domain.EnrichmentRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *enrichmentRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return r.handle(dbc).
		Model(&domain.EnrichmentRun{}).
		Where("id = ? AND status = ?", id, domain.RunRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}
