package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
)

// Runner matches aggregates.TxRunner.
type Runner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// FaultyTxRunner wraps a real runner and injects failures around the write
// body. Returning AfterBody from inside the inner transaction makes the inner
// runner roll back everything the body wrote. With no Inner the body runs
// without a transaction.
type FaultyTxRunner struct {
	Inner      Runner
	BeforeBody error
	AfterBody  error

	mu        sync.Mutex
	bodies    int
	rollbacks int
}

func (r *FaultyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	wrapped := func(dbc dbctx.Context) error {
		if r.BeforeBody != nil {
			return r.fail(r.BeforeBody)
		}
		r.mu.Lock()
		r.bodies++
		r.mu.Unlock()
		if fn != nil {
			if err := fn(dbc); err != nil {
				return r.fail(err)
			}
		}
		if r.AfterBody != nil {
			return r.fail(r.AfterBody)
		}
		return nil
	}
	if r.Inner == nil {
		return wrapped(dbctx.Context{Ctx: ctx})
	}
	return r.Inner.InTx(ctx, wrapped)
}

func (r *FaultyTxRunner) fail(err error) error {
	r.mu.Lock()
	r.rollbacks++
	r.mu.Unlock()
	return err
}

// Bodies counts write bodies that started.
func (r *FaultyTxRunner) Bodies() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodies
}

// Rollbacks counts calls that returned an error.
func (r *FaultyTxRunner) Rollbacks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rollbacks
}
