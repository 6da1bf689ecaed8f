package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/klhlearn/peerlearn-backend/internal/domain"
	"github.com/klhlearn/peerlearn-backend/internal/platform/dbctx"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

// queueRepo hands out preloaded runs one at a time and records every
// field update.
type queueRepo struct {
	mu      sync.Mutex
	pending []*domain.EnrichmentRun
	updates map[uuid.UUID][]map[string]interface{}
}

func newQueueRepo(runs ...*domain.EnrichmentRun) *queueRepo {
	return &queueRepo{pending: runs, updates: map[uuid.UUID][]map[string]interface{}{}}
}

func (q *queueRepo) Create(dbc dbctx.Context, runs []*domain.EnrichmentRun) ([]*domain.EnrichmentRun, error) {
	return runs, nil
}

func (q *queueRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.EnrichmentRun, error) {
	return nil, nil
}

func (q *queueRepo) GetLatestByVideoID(dbc dbctx.Context, videoID uuid.UUID) (*domain.EnrichmentRun, error) {
	return nil, nil
}

func (q *queueRepo) ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay, staleRunning time.Duration) (*domain.EnrichmentRun, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	run := q.pending[0]
	q.pending = q.pending[1:]
	run.Status = domain.RunRunning
	run.Attempts++
	return run, nil
}

func (q *queueRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.updates[id] = append(q.updates[id], updates)
	return nil
}

func (q *queueRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error { return nil }

func (q *queueRepo) lastStatus(id uuid.UUID) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := len(q.updates[id]) - 1; i >= 0; i-- {
		if s, ok := q.updates[id][i]["status"].(string); ok {
			return s
		}
	}
	return ""
}

type recordingHandler struct {
	panicFirst bool
	panicked   bool
	done       chan uuid.UUID
}

func (h *recordingHandler) Run(jc *Context) {
	if h.panicFirst && !h.panicked {
		h.panicked = true
		defer func() { h.done <- jc.Run().ID }()
		panic("boom")
	}
	jc.Succeed()
	h.done <- jc.Run().ID
}

func newRun(jobType string) *domain.EnrichmentRun {
	return &domain.EnrichmentRun{ID: uuid.New(), VideoID: uuid.New(), JobType: jobType, Status: domain.RunQueued}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func waitFor(t *testing.T, ch chan uuid.UUID) uuid.UUID {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for handler")
		return uuid.Nil
	}
}

func TestWorkerDispatchesToRegisteredHandler(t *testing.T) {
	run := newRun(domain.JobTypeVideoEnrichment)
	repo := newQueueRepo(run)
	handler := &recordingHandler{done: make(chan uuid.UUID, 1)}

	registry := NewRegistry()
	registry.Register(domain.JobTypeVideoEnrichment, handler)

	worker := NewWorker(testLogger(t), repo, registry, Policy{Concurrency: 1, PollInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	if got := waitFor(t, handler.done); got != run.ID {
		t.Fatalf("handled %s, want %s", got, run.ID)
	}
	cancel()
	worker.Wait()

	if got := repo.lastStatus(run.ID); got != domain.RunSucceeded {
		t.Fatalf("run status = %q, want succeeded", got)
	}
}

func TestWorkerFailsUnregisteredJobType(t *testing.T) {
	run := newRun("unknown_type")
	repo := newQueueRepo(run)

	worker := NewWorker(testLogger(t), repo, NewRegistry(), Policy{Concurrency: 1, PollInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	deadline := time.After(5 * time.Second)
	for repo.lastStatus(run.ID) != domain.RunFailed {
		select {
		case <-deadline:
			t.Fatalf("unregistered job never marked failed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	worker.Wait()
}

func TestWorkerSurvivesHandlerPanic(t *testing.T) {
	first := newRun(domain.JobTypeVideoEnrichment)
	second := newRun(domain.JobTypeVideoEnrichment)
	repo := newQueueRepo(first, second)
	handler := &recordingHandler{panicFirst: true, done: make(chan uuid.UUID, 2)}

	registry := NewRegistry()
	registry.Register(domain.JobTypeVideoEnrichment, handler)

	worker := NewWorker(testLogger(t), repo, registry, Policy{Concurrency: 1, PollInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	if got := waitFor(t, handler.done); got != first.ID {
		t.Fatalf("first dispatch was %s, want %s", got, first.ID)
	}
	if got := waitFor(t, handler.done); got != second.ID {
		t.Fatalf("second dispatch was %s, want %s", got, second.ID)
	}
	cancel()
	worker.Wait()

	if got := repo.lastStatus(first.ID); got != domain.RunFailed {
		t.Fatalf("panicked run status = %q, want failed", got)
	}
	if got := repo.lastStatus(second.ID); got != domain.RunSucceeded {
		t.Fatalf("second run status = %q, want succeeded", got)
	}
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry()
	if _, ok := registry.Get("missing"); ok {
		t.Fatalf("empty registry returned a handler")
	}
	h := &recordingHandler{done: make(chan uuid.UUID, 1)}
	registry.Register("x", h)
	got, ok := registry.Get("x")
	if !ok || got != h {
		t.Fatalf("registered handler not returned")
	}
}
