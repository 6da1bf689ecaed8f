package repos

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/klhlearn/peerlearn-backend/internal/domain"
	"github.com/klhlearn/peerlearn-backend/internal/platform/dbctx"
)

func seedRun(t *testing.T, repo EnrichmentRunRepo, mutate func(*domain.EnrichmentRun)) *domain.EnrichmentRun {
	t.Helper()
	run := &domain.EnrichmentRun{
		ID:      uuid.New(),
		VideoID: uuid.New(),
		JobType: domain.JobTypeVideoEnrichment,
		Status:  domain.RunQueued,
		Stage:   "queued",
	}
	if mutate != nil {
		mutate(run)
	}
	if _, err := repo.Create(dbctx.Background(), []*domain.EnrichmentRun{run}); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	return run
}

func TestClaimNextRunnableMarksRunning(t *testing.T) {
	db, log := newTestDB(t)
	repo := NewEnrichmentRunRepo(db, log)
	dbc := dbctx.Background()
	run := seedRun(t, repo, nil)

	claimed, err := repo.ClaimNextRunnable(dbc, 5, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != run.ID {
		t.Fatalf("claimed = %+v, want run %s", claimed, run.ID)
	}

	got, err := repo.GetByIDs(dbc, []uuid.UUID{run.ID})
	if err != nil || len(got) != 1 {
		t.Fatalf("reload: %v", err)
	}
	if got[0].Status != domain.RunRunning {
		t.Fatalf("status = %q, want running", got[0].Status)
	}
	if got[0].Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", got[0].Attempts)
	}
	if got[0].LockedAt == nil || got[0].HeartbeatAt == nil {
		t.Fatalf("claim did not set locked_at/heartbeat_at")
	}

	// Nothing else runnable now.
	again, err := repo.ClaimNextRunnable(dbc, 5, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if again != nil {
		t.Fatalf("second claim got %s, want none", again.ID)
	}
}

func TestClaimNextRunnableOldestFirst(t *testing.T) {
	db, log := newTestDB(t)
	repo := NewEnrichmentRunRepo(db, log)
	dbc := dbctx.Background()

	old := seedRun(t, repo, func(r *domain.EnrichmentRun) {
		r.CreatedAt = time.Now().Add(-time.Hour)
	})
	seedRun(t, repo, nil)

	claimed, err := repo.ClaimNextRunnable(dbc, 5, time.Minute, time.Hour)
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.ID != old.ID {
		t.Fatalf("claimed %s, want oldest %s", claimed.ID, old.ID)
	}
}

func TestClaimNextRunnableRespectsRetryDelay(t *testing.T) {
	db, log := newTestDB(t)
	repo := NewEnrichmentRunRepo(db, log)
	dbc := dbctx.Background()

	recent := time.Now().Add(-time.Second)
	seedRun(t, repo, func(r *domain.EnrichmentRun) {
		r.Status = domain.RunFailed
		r.Attempts = 1
		r.LastErrorAt = &recent
	})

	claimed, err := repo.ClaimNextRunnable(dbc, 5, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed != nil {
		t.Fatalf("failed run claimed before retry delay elapsed")
	}

	// Once the error is old enough it becomes runnable again.
	stale := time.Now().Add(-2 * time.Minute)
	seedRun(t, repo, func(r *domain.EnrichmentRun) {
		r.Status = domain.RunFailed
		r.Attempts = 1
		r.LastErrorAt = &stale
	})
	claimed, err = repo.ClaimNextRunnable(dbc, 5, time.Minute, time.Hour)
	if err != nil || claimed == nil {
		t.Fatalf("retryable run not claimed: %v", err)
	}
	if claimed.Attempts != 1 {
		t.Fatalf("claimed snapshot attempts = %d, want pre-claim value 1", claimed.Attempts)
	}
}

func TestClaimNextRunnableSkipsExhaustedRuns(t *testing.T) {
	db, log := newTestDB(t)
	repo := NewEnrichmentRunRepo(db, log)
	dbc := dbctx.Background()

	long := time.Now().Add(-time.Hour)
	seedRun(t, repo, func(r *domain.EnrichmentRun) {
		r.Status = domain.RunFailed
		r.Attempts = 5
		r.LastErrorAt = &long
	})

	claimed, err := repo.ClaimNextRunnable(dbc, 5, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed != nil {
		t.Fatalf("exhausted run must stay failed")
	}
}

func TestClaimNextRunnableRecoversStaleRunning(t *testing.T) {
	db, log := newTestDB(t)
	repo := NewEnrichmentRunRepo(db, log)
	dbc := dbctx.Background()

	dead := time.Now().Add(-2 * time.Hour)
	run := seedRun(t, repo, func(r *domain.EnrichmentRun) {
		r.Status = domain.RunRunning
		r.Attempts = 1
		r.LockedAt = &dead
		r.HeartbeatAt = &dead
	})

	claimed, err := repo.ClaimNextRunnable(dbc, 5, time.Minute, time.Hour)
	if err != nil || claimed == nil {
		t.Fatalf("stale running run not reclaimed: %v", err)
	}
	if claimed.ID != run.ID {
		t.Fatalf("claimed %s, want %s", claimed.ID, run.ID)
	}

	got, _ := repo.GetByIDs(dbc, []uuid.UUID{run.ID})
	if len(got) != 1 || got[0].Attempts != 2 {
		t.Fatalf("reclaim did not bump attempts")
	}
}

func TestHeartbeatOnlyTouchesRunningRuns(t *testing.T) {
	db, log := newTestDB(t)
	repo := NewEnrichmentRunRepo(db, log)
	dbc := dbctx.Background()

	run := seedRun(t, repo, nil)
	if err := repo.Heartbeat(dbc, run.ID); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	got, _ := repo.GetByIDs(dbc, []uuid.UUID{run.ID})
	if len(got) != 1 {
		t.Fatalf("reload failed")
	}
	if got[0].HeartbeatAt != nil {
		t.Fatalf("heartbeat touched a queued run")
	}
}

func TestGetLatestByVideoID(t *testing.T) {
	db, log := newTestDB(t)
	repo := NewEnrichmentRunRepo(db, log)
	dbc := dbctx.Background()

	videoID := uuid.New()
	seedRun(t, repo, func(r *domain.EnrichmentRun) {
		r.VideoID = videoID
		r.CreatedAt = time.Now().Add(-time.Hour)
		r.Status = domain.RunFailed
	})
	latest := seedRun(t, repo, func(r *domain.EnrichmentRun) {
		r.VideoID = videoID
	})

	got, err := repo.GetLatestByVideoID(dbc, videoID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil || got.ID != latest.ID {
		t.Fatalf("latest = %+v, want %s", got, latest.ID)
	}

	none, err := repo.GetLatestByVideoID(dbc, uuid.New())
	if err != nil {
		t.Fatalf("latest for unknown: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for unknown video")
	}
}
