package jobs

import (
	"context"
	"time"

	"github.com/klhlearn/peerlearn-backend/internal/data/repos"
	"github.com/klhlearn/peerlearn-backend/internal/domain"
	"github.com/klhlearn/peerlearn-backend/internal/platform/dbctx"
)

// Context is the handle a job handler gets for one claimed run. Status
// writes go through the run repo; none of them are required to be
// durable before work proceeds, matching the at-least-once contract.
type Context struct {
	ctx  context.Context
	run  *domain.EnrichmentRun
	repo repos.EnrichmentRunRepo
}

func NewContext(ctx context.Context, run *domain.EnrichmentRun, repo repos.EnrichmentRunRepo) *Context {
	return &Context{ctx: ctx, run: run, repo: repo}
}

func (jc *Context) Ctx() context.Context       { return jc.ctx }
func (jc *Context) Run() *domain.EnrichmentRun { return jc.run }
func (jc *Context) DBC() dbctx.Context         { return dbctx.Context{Ctx: jc.ctx} }

// Progress records the stage the run has reached and refreshes the
// heartbeat so the claim does not look stale.
func (jc *Context) Progress(stage string) {
	now := time.Now()
	_ = jc.repo.UpdateFields(jc.DBC(), jc.run.ID, map[string]interface{}{
		"stage":        stage,
		"heartbeat_at": now,
	})
}

func (jc *Context) Succeed() {
	_ = jc.repo.UpdateFields(jc.DBC(), jc.run.ID, map[string]interface{}{
		"status":    domain.RunSucceeded,
		"stage":     "done",
		"error":     "",
		"locked_at": nil,
	})
}

func (jc *Context) Fail(stage string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	now := time.Now()
	_ = jc.repo.UpdateFields(jc.DBC(), jc.run.ID, map[string]interface{}{
		"status":        domain.RunFailed,
		"stage":         stage,
		"error":         msg,
		"last_error_at": now,
		"locked_at":     nil,
	})
}
