package aggregates

import (
	"context"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/truequecito-backend/internal/domain/aggregates"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

// BaseDeps is shared by every aggregate. Zero fields are filled from DB.
type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
	Guard  StatusGuard
	Now    func() time.Time
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Guard.db == nil {
		d.Guard = NewStatusGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// executeWrite is the single entry point for aggregate mutations: fn runs in
// one transaction and its failure comes back as a *domainagg.Error.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	deps = deps.withDefaults()
	if op == "" {
		op = "Exchange.Write"
	}
	start := time.Now()
	err := MapError(op, deps.Runner.InTx(ctx, fn))
	code := writeStatus(err)

	switch domainagg.ErrorCode(code) {
	case domainagg.CodeConflict:
		deps.Hooks.IncConflict(op)
	case domainagg.CodeRetryable:
		deps.Hooks.IncRetry(op)
	case domainagg.CodeInternal:
		deps.Log.Error("exchange write failed", "op", op, "error", err)
	}
	deps.Hooks.ObserveOperation(op, code, time.Since(start))
	return err
}

// writeStatus is the hook status label for a mapped write error.
func writeStatus(err error) string {
	if err == nil {
		return "success"
	}
	if code := domainagg.CodeOf(err); code != "" {
		return string(code)
	}
	return string(domainagg.CodeInternal)
}
