package jobs

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/klhlearn/peerlearn-backend/internal/data/repos"
	"github.com/klhlearn/peerlearn-backend/internal/domain"
	"github.com/klhlearn/peerlearn-backend/internal/platform/dbctx"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

// Policy tunes the claim loop. Zero values fall back to defaults at
// Start, so a bare Policy{} is safe in tests.
type Policy struct {
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.Concurrency < 1 {
		p.Concurrency = 2
	}
	if p.PollInterval <= 0 {
		p.PollInterval = 1 * time.Second
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 5
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = 30 * time.Second
	}
	if p.StaleRunning <= 0 {
		p.StaleRunning = 10 * time.Minute
	}
	return p
}

// Worker polls the enrichment_run table and dispatches claimed runs to
// registered handlers. Scheduling a run never blocks the caller; the
// poll interval doubles as the grace period between an upload response
// and its job starting.
type Worker struct {
	log      *logger.Logger
	repo     repos.EnrichmentRunRepo
	registry *Registry
	policy   Policy

	eg *errgroup.Group
}

func NewWorker(baseLog *logger.Logger, repo repos.EnrichmentRunRepo, registry *Registry, policy Policy) *Worker {
	return &Worker{
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		policy:   policy.withDefaults(),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.policy.Concurrency)
	eg, ctx := errgroup.WithContext(ctx)
	w.eg = eg
	for i := 0; i < w.policy.Concurrency; i++ {
		workerID := i + 1
		eg.Go(func() error {
			w.runLoop(ctx, workerID)
			return nil
		})
	}
}

// Wait blocks until all loops have drained after the context given to
// Start is cancelled.
func (w *Worker) Wait() {
	if w.eg != nil {
		_ = w.eg.Wait()
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.policy.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			run, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.policy.MaxAttempts, w.policy.RetryDelay, w.policy.StaleRunning)
			if err != nil {
				w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
				continue
			}
			if run == nil {
				continue
			}
			w.dispatch(ctx, workerID, run)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, workerID int, run *domain.EnrichmentRun) {
	jc := NewContext(ctx, run, w.repo)

	h, ok := w.registry.Get(run.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type",
			"worker_id", workerID,
			"job_type", run.JobType,
			"job_id", run.ID,
		)
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", run.JobType))
		return
	}

	// A panicking handler must not take the loop down with it.
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic", "job_id", run.ID, "job_type", run.JobType, "panic", r)
				jc.Fail("panic", fmt.Errorf("panic: %v", r))
			}
		}()
		h.Run(jc)
	}()
}
