package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/truequecito-backend/internal/data/aggregates"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
)

var (
	_ aggregates.Hooks    = (*Hooks)(nil)
	_ aggregates.TxRunner = (*FaultyTxRunner)(nil)
)

func TestHooksCountsByKindAndOp(t *testing.T) {
	h := &Hooks{}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.IncConflict("Exchange.Accept")
		}()
	}
	wg.Wait()
	h.IncRetry("Exchange.UploadReceipt")
	h.ObserveOperation("Exchange.Accept", "success", time.Millisecond)
	h.ObserveOperation("Exchange.Accept", "conflict", time.Millisecond)

	if got := h.Count(EventConflict, "Exchange.Accept"); got != 4 {
		t.Fatalf("conflicts: want=4 got=%d", got)
	}
	if got := h.Count(EventRetry, ""); got != 1 {
		t.Fatalf("retries: want=1 got=%d", got)
	}
	statuses := h.Statuses("Exchange.Accept")
	if len(statuses) != 2 || statuses[0] != "success" || statuses[1] != "conflict" {
		t.Fatalf("statuses: got=%v", statuses)
	}
}

type countingRunner struct{ calls int }

func (r *countingRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.calls++
	return fn(dbctx.Context{Ctx: ctx})
}

func TestFaultyTxRunner(t *testing.T) {
	boom := errors.New("commit refused")

	t.Run("after body", func(t *testing.T) {
		inner := &countingRunner{}
		r := &FaultyTxRunner{Inner: inner, AfterBody: boom}
		ran := false
		err := r.InTx(context.Background(), func(dbctx.Context) error {
			ran = true
			return nil
		})
		if !errors.Is(err, boom) {
			t.Fatalf("err: want=%v got=%v", boom, err)
		}
		if !ran || inner.calls != 1 || r.Bodies() != 1 || r.Rollbacks() != 1 {
			t.Fatalf("ran=%v inner=%d bodies=%d rollbacks=%d", ran, inner.calls, r.Bodies(), r.Rollbacks())
		}
	})

	t.Run("before body", func(t *testing.T) {
		r := &FaultyTxRunner{BeforeBody: boom}
		err := r.InTx(context.Background(), func(dbctx.Context) error {
			t.Fatalf("body must not run")
			return nil
		})
		if !errors.Is(err, boom) || r.Bodies() != 0 {
			t.Fatalf("err=%v bodies=%d", err, r.Bodies())
		}
	})

	t.Run("clean", func(t *testing.T) {
		r := &FaultyTxRunner{}
		if err := r.InTx(context.Background(), func(dbctx.Context) error { return nil }); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if r.Rollbacks() != 0 {
			t.Fatalf("rollbacks: want=0 got=%d", r.Rollbacks())
		}
	})
}
