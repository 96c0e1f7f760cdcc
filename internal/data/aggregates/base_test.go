package aggregates

import (
	"context"
	"errors"
	"testing"

	aggtest "github.com/yungbote/truequecito-backend/internal/data/aggregates/testutil"
	domainagg "github.com/yungbote/truequecito-backend/internal/domain/aggregates"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
)

func TestExecuteWriteReportsOutcome(t *testing.T) {
	cases := []struct {
		name      string
		body      error
		wantCode  domainagg.ErrorCode
		status    string
		conflicts int
		retries   int
	}{
		{name: "success", status: "success"},
		{name: "validation", body: ValidationError("bad id"), wantCode: domainagg.CodeValidation, status: "validation"},
		{name: "unauthorized", body: UnauthorizedError("not yours"), wantCode: domainagg.CodeUnauthorized, status: "unauthorized"},
		{name: "invariant", body: InvariantError("missing receipt"), wantCode: domainagg.CodeInvariantViolation, status: "invariant_violation"},
		{name: "conflict", body: ConflictError("stale status"), wantCode: domainagg.CodeConflict, status: "conflict", conflicts: 1},
		{name: "retryable", body: RetryableError("lock timeout"), wantCode: domainagg.CodeRetryable, status: "retryable", retries: 1},
		{name: "deadline", body: context.DeadlineExceeded, wantCode: domainagg.CodeRetryable, status: "retryable", retries: 1},
		{name: "opaque", body: errors.New("disk on fire"), wantCode: domainagg.CodeInternal, status: "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := &aggtest.Hooks{}
			op := "Exchange.Test"
			err := executeWrite(context.Background(), BaseDeps{
				Runner: &aggtest.FaultyTxRunner{},
				Hooks:  hooks,
			}, op, func(dbctx.Context) error { return tc.body })

			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
			} else if !domainagg.IsCode(err, tc.wantCode) {
				t.Fatalf("code: want=%s got=%v", tc.wantCode, err)
			}
			if got := hooks.Statuses(op); len(got) != 1 || got[0] != tc.status {
				t.Fatalf("statuses: want=[%s] got=%v", tc.status, got)
			}
			if got := hooks.Count(aggtest.EventConflict, op); got != tc.conflicts {
				t.Fatalf("conflicts: want=%d got=%d", tc.conflicts, got)
			}
			if got := hooks.Count(aggtest.EventRetry, op); got != tc.retries {
				t.Fatalf("retries: want=%d got=%d", tc.retries, got)
			}
		})
	}
}

func TestExecuteWriteKeepsTaggedMessage(t *testing.T) {
	err := executeWrite(context.Background(), BaseDeps{Runner: &aggtest.FaultyTxRunner{}}, "Exchange.Accept",
		func(dbctx.Context) error { return ConflictError("exchange is already accepted") })
	if got := domainagg.MessageOf(err); got != "exchange is already accepted" {
		t.Fatalf("message: want=%q got=%q", "exchange is already accepted", got)
	}
}

func TestChainHooksFansOut(t *testing.T) {
	a, b := &aggtest.Hooks{}, &aggtest.Hooks{}
	hooks := ChainHooks(a, nil, b)
	hooks.IncConflict("Exchange.Reject")
	hooks.IncRetry("Exchange.Reject")
	hooks.ObserveOperation("Exchange.Reject", "conflict", 0)

	for name, h := range map[string]*aggtest.Hooks{"a": a, "b": b} {
		if got := len(h.Events()); got != 3 {
			t.Fatalf("%s events: want=3 got=%d", name, got)
		}
	}
}

func TestGormTxRunnerSkipsCanceledContext(t *testing.T) {
	f := newExchangeFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	err := NewGormTxRunner(f.db).InTx(ctx, func(dbctx.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || ran {
		t.Fatalf("err=%v ran=%v", err, ran)
	}
}
