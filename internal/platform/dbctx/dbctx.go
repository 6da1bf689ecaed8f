package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles the request context with an optional transaction.
// Repos fall back to their own connection when Tx is nil, so callers
// only set it when several writes must commit together.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func Background() Context {
	return Context{Ctx: context.Background()}
}

func From(ctx context.Context) Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return Context{Ctx: ctx}
}

func (c Context) WithTx(tx *gorm.DB) Context {
	c.Tx = tx
	return c
}
