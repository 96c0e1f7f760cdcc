package aggregates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	aggtest "github.com/yungbote/truequecito-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/truequecito-backend/internal/data/repos"
	"github.com/yungbote/truequecito-backend/internal/data/repos/testutil"
	types "github.com/yungbote/truequecito-backend/internal/domain"
	domainagg "github.com/yungbote/truequecito-backend/internal/domain/aggregates"
	"github.com/yungbote/truequecito-backend/internal/domain/exchange"
	"github.com/yungbote/truequecito-backend/internal/domain/notification"
)

type stubMessages struct{}

func (stubMessages) Render(kind notification.Kind, vars map[string]string) (string, error) {
	return fmt.Sprintf("%s:%s", kind, vars["status"]), nil
}

type exchangeFixture struct {
	db        *gorm.DB
	agg       domainagg.ExchangeAggregate
	hooks     *aggtest.Hooks
	ana, beto *types.User
	bici      *types.Product
	libro     *types.Product
}

func newExchangeFixture(t *testing.T) *exchangeFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	hooks := &aggtest.Hooks{}
	f := &exchangeFixture{db: db, hooks: hooks}
	f.agg = NewExchangeAggregate(ExchangeAggregateDeps{
		Base:          BaseDeps{DB: db, Log: log, Hooks: hooks},
		Exchanges:     repos.NewExchangeRepo(db, log),
		Notifications: repos.NewNotificationRepo(db, log),
		Messages:      stubMessages{},
	})
	f.ana = testutil.SeedUser(t, ctx, db, "ana")
	f.beto = testutil.SeedUser(t, ctx, db, "beto")
	f.bici = testutil.SeedProduct(t, ctx, db, f.ana.ID, "bicicleta")
	f.libro = testutil.SeedProduct(t, ctx, db, f.beto.ID, "libro")
	return f
}

func (f *exchangeFixture) propose(t *testing.T) *exchange.Exchange {
	t.Helper()
	res, err := f.agg.Propose(context.Background(), domainagg.ProposeExchangeInput{
		ActorID:          f.ana.ID,
		CounterpartyID:   f.beto.ID,
		ProductOffered:   f.bici.ID,
		ProductRequested: f.libro.ID,
	})
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	return res.Exchange
}

func (f *exchangeFixture) notificationsFor(t *testing.T, userID uuid.UUID) []*types.Notification {
	t.Helper()
	var out []*types.Notification
	if err := f.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&out).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	return out
}

func (f *exchangeFixture) upload(role exchange.Role, actor uuid.UUID, id uuid.UUID) (domainagg.UploadReceiptResult, error) {
	return f.agg.UploadReceipt(context.Background(), domainagg.UploadReceiptInput{
		ActorID:    actor,
		ExchangeID: id,
		Role:       role,
		ReceiptRef: fmt.Sprintf("receipts/%s/%s/r.png", id, role),
		Address:    "Av. Matta 100",
		Phone:      "+56911111111",
	})
}

func TestProposeCreatesPendingAndNotifiesCounterparty(t *testing.T) {
	f := newExchangeFixture(t)
	e := f.propose(t)
	if e.Status != exchange.StatusPending {
		t.Fatalf("status: want=pending got=%s", e.Status)
	}
	if len(e.UniqueCode) != 10 {
		t.Fatalf("uniqueCode length: want=10 got=%q", e.UniqueCode)
	}
	if e.UserOffered != f.ana.ID || e.UserRequested != f.beto.ID {
		t.Fatalf("participants: got offered=%s requested=%s", e.UserOffered, e.UserRequested)
	}
	if got := f.notificationsFor(t, f.beto.ID); len(got) != 1 || got[0].Kind != notification.KindProposalReceived {
		t.Fatalf("counterparty notifications: want=1 proposal got=%d", len(got))
	}
	if got := f.notificationsFor(t, f.ana.ID); len(got) != 0 {
		t.Fatalf("proposer notifications: want=0 got=%d", len(got))
	}
}

func TestProposeValidation(t *testing.T) {
	f := newExchangeFixture(t)
	cases := []domainagg.ProposeExchangeInput{
		{ActorID: f.ana.ID, ProductOffered: f.bici.ID, ProductRequested: f.libro.ID},
		{ActorID: f.ana.ID, CounterpartyID: f.beto.ID, ProductOffered: f.bici.ID},
		{ActorID: f.ana.ID, CounterpartyID: f.ana.ID, ProductOffered: f.bici.ID, ProductRequested: f.libro.ID},
		{ActorID: f.ana.ID, CounterpartyID: f.beto.ID, ProductOffered: f.bici.ID, ProductRequested: f.bici.ID},
	}
	for i, in := range cases {
		_, err := f.agg.Propose(context.Background(), in)
		if !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("case %d: want validation got=%v", i, err)
		}
	}
}

func TestUploadBothReceiptsCompletesInEitherOrder(t *testing.T) {
	orders := [][]exchange.Role{
		{exchange.RoleOffered, exchange.RoleRequested},
		{exchange.RoleRequested, exchange.RoleOffered},
	}
	for _, order := range orders {
		t.Run(string(order[0])+"_first", func(t *testing.T) {
			f := newExchangeFixture(t)
			e := f.propose(t)
			actors := map[exchange.Role]uuid.UUID{exchange.RoleOffered: f.ana.ID, exchange.RoleRequested: f.beto.ID}

			first, err := f.upload(order[0], actors[order[0]], e.ID)
			if err != nil {
				t.Fatalf("first upload: %v", err)
			}
			if first.Completed || first.Exchange.Status != exchange.StatusPending {
				t.Fatalf("one receipt must not complete: status=%s", first.Exchange.Status)
			}
			if first.Notifications != 1 {
				t.Fatalf("first upload notifications: want=1 got=%d", first.Notifications)
			}
			if first.Exchange.FirstReceiptUploadedBy == nil || *first.Exchange.FirstReceiptUploadedBy != actors[order[0]] {
				t.Fatalf("firstReceiptUploadedBy: got=%v", first.Exchange.FirstReceiptUploadedBy)
			}

			second, err := f.upload(order[1], actors[order[1]], e.ID)
			if err != nil {
				t.Fatalf("second upload: %v", err)
			}
			if !second.Completed || second.Exchange.Status != exchange.StatusCompleted {
				t.Fatalf("both receipts must complete: status=%s", second.Exchange.Status)
			}
			if *second.Exchange.FirstReceiptUploadedBy != actors[order[0]] {
				t.Fatalf("firstReceiptUploadedBy must not change")
			}
			if second.Exchange.UniqueCode != e.UniqueCode {
				t.Fatalf("uniqueCode changed: want=%s got=%s", e.UniqueCode, second.Exchange.UniqueCode)
			}
			if !second.Exchange.HasBothReceipts() || second.Exchange.CompletedAt == nil {
				t.Fatalf("completed exchange missing receipts or completedAt")
			}
		})
	}
}

func TestConcurrentUploadsCompleteExactlyOnce(t *testing.T) {
	f := newExchangeFixture(t)
	e := f.propose(t)

	var wg sync.WaitGroup
	results := make([]domainagg.UploadReceiptResult, 2)
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], errs[0] = f.upload(exchange.RoleOffered, f.ana.ID, e.ID)
	}()
	go func() {
		defer wg.Done()
		results[1], errs[1] = f.upload(exchange.RoleRequested, f.beto.ID, e.ID)
	}()
	wg.Wait()

	completed := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("upload %d: %v", i, errs[i])
		}
		if results[i].Completed {
			completed++
		}
	}
	if completed != 1 {
		t.Fatalf("completed transitions: want=1 got=%d", completed)
	}
	var stored types.Exchange
	if err := f.db.Where("id = ?", e.ID).Take(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != exchange.StatusCompleted {
		t.Fatalf("status: want=completed got=%s", stored.Status)
	}
}

func TestUploadReceiptRequiresOwnRole(t *testing.T) {
	f := newExchangeFixture(t)
	e := f.propose(t)
	_, err := f.upload(exchange.RoleRequested, f.ana.ID, e.ID)
	if !domainagg.IsCode(err, domainagg.CodeUnauthorized) {
		t.Fatalf("want unauthorized got=%v", err)
	}
	stranger := testutil.SeedUser(t, context.Background(), f.db, "extra")
	_, err = f.upload(exchange.RoleOffered, stranger.ID, e.ID)
	if !domainagg.IsCode(err, domainagg.CodeUnauthorized) {
		t.Fatalf("stranger: want unauthorized got=%v", err)
	}
}

func TestUploadReceiptOnRejectedIsConflict(t *testing.T) {
	f := newExchangeFixture(t)
	e := f.propose(t)
	if _, err := f.agg.Reject(context.Background(), domainagg.ExchangeTransitionInput{ActorID: f.beto.ID, ExchangeID: e.ID}); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	_, err := f.upload(exchange.RoleOffered, f.ana.ID, e.ID)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict got=%v", err)
	}
}

func TestRejectNotifiesBothParticipants(t *testing.T) {
	f := newExchangeFixture(t)
	e := f.propose(t)
	res, err := f.agg.Reject(context.Background(), domainagg.ExchangeTransitionInput{ActorID: f.beto.ID, ExchangeID: e.ID})
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if res.Exchange.Status != exchange.StatusRejected || res.Notifications != 2 {
		t.Fatalf("reject: status=%s notifications=%d", res.Exchange.Status, res.Notifications)
	}
	for _, u := range []uuid.UUID{f.ana.ID, f.beto.ID} {
		var count int64
		f.db.Model(&types.Notification{}).Where("user_id = ? AND kind = ?", u, notification.KindStatusChanged).Count(&count)
		if count != 1 {
			t.Fatalf("status notifications for %s: want=1 got=%d", u, count)
		}
	}
}

func TestRejectMissingExchangeIsNotFound(t *testing.T) {
	f := newExchangeFixture(t)
	_, err := f.agg.Reject(context.Background(), domainagg.ExchangeTransitionInput{ActorID: f.ana.ID, ExchangeID: uuid.New()})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("want not_found got=%v", err)
	}
}

func TestUpdateStatusAuthorizationAndTransitions(t *testing.T) {
	f := newExchangeFixture(t)
	e := f.propose(t)
	ctx := context.Background()
	stranger := testutil.SeedUser(t, ctx, f.db, "extra")

	_, err := f.agg.UpdateStatus(ctx, domainagg.ExchangeTransitionInput{ActorID: stranger.ID, ExchangeID: e.ID, Target: exchange.StatusAccepted})
	if !domainagg.IsCode(err, domainagg.CodeUnauthorized) {
		t.Fatalf("stranger: want unauthorized got=%v", err)
	}

	_, err = f.agg.UpdateStatus(ctx, domainagg.ExchangeTransitionInput{ActorID: f.ana.ID, ExchangeID: e.ID, Target: "shipped"})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("unknown status: want validation got=%v", err)
	}

	_, err = f.agg.UpdateStatus(ctx, domainagg.ExchangeTransitionInput{ActorID: f.ana.ID, ExchangeID: e.ID, Target: exchange.StatusCompleted})
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("completed without receipts: want invariant_violation got=%v", err)
	}

	res, err := f.agg.UpdateStatus(ctx, domainagg.ExchangeTransitionInput{ActorID: f.ana.ID, ExchangeID: e.ID, Target: exchange.StatusAccepted})
	if err != nil {
		t.Fatalf("UpdateStatus accepted: %v", err)
	}
	if res.Exchange.Status != exchange.StatusAccepted || res.Notifications != 2 {
		t.Fatalf("accepted: status=%s notifications=%d", res.Exchange.Status, res.Notifications)
	}

	_, err = f.agg.UpdateStatus(ctx, domainagg.ExchangeTransitionInput{ActorID: f.beto.ID, ExchangeID: e.ID, Target: exchange.StatusPending})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("backward move: want conflict got=%v", err)
	}
	_, err = f.agg.Accept(ctx, domainagg.ExchangeTransitionInput{ActorID: f.beto.ID, ExchangeID: e.ID})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("same status: want conflict got=%v", err)
	}
	if got := f.hooks.Count(aggtest.EventConflict, "Exchange.UpdateStatus"); got != 1 {
		t.Fatalf("UpdateStatus conflict hooks: want=1 got=%d", got)
	}
	if got := f.hooks.Count(aggtest.EventConflict, "Exchange.Accept"); got != 1 {
		t.Fatalf("Accept conflict hooks: want=1 got=%d", got)
	}
}

func TestAcceptRequiresCounterparty(t *testing.T) {
	f := newExchangeFixture(t)
	e := f.propose(t)
	stranger := testutil.SeedUser(t, context.Background(), f.db, "extra")
	_, err := f.agg.Accept(context.Background(), domainagg.ExchangeTransitionInput{ActorID: stranger.ID, ExchangeID: e.ID})
	if !domainagg.IsCode(err, domainagg.CodeUnauthorized) {
		t.Fatalf("want unauthorized got=%v", err)
	}
	_, err = f.agg.Accept(context.Background(), domainagg.ExchangeTransitionInput{ActorID: f.ana.ID, ExchangeID: e.ID})
	if !domainagg.IsCode(err, domainagg.CodeUnauthorized) {
		t.Fatalf("proposer accepting own offer: want unauthorized got=%v", err)
	}
	res, err := f.agg.Accept(context.Background(), domainagg.ExchangeTransitionInput{ActorID: f.beto.ID, ExchangeID: e.ID})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if res.Exchange.Status != exchange.StatusAccepted {
		t.Fatalf("status: want=accepted got=%s", res.Exchange.Status)
	}
}

func TestNotificationsRollBackWithFailedWrite(t *testing.T) {
	f := newExchangeFixture(t)
	e := f.propose(t)
	before := len(f.notificationsFor(t, f.beto.ID))
	_, err := f.agg.UpdateStatus(context.Background(), domainagg.ExchangeTransitionInput{ActorID: f.ana.ID, ExchangeID: e.ID, Target: exchange.StatusCompleted})
	if err == nil {
		t.Fatalf("expected completion without receipts to fail")
	}
	if after := len(f.notificationsFor(t, f.beto.ID)); after != before {
		t.Fatalf("notifications after failed write: want=%d got=%d", before, after)
	}
}

func TestCommitFailureRollsBackStatusAndNotifications(t *testing.T) {
	f := newExchangeFixture(t)
	e := f.propose(t)
	log := testutil.Logger(t)
	runner := &aggtest.FaultyTxRunner{Inner: NewGormTxRunner(f.db), AfterBody: errors.New("commit refused")}
	agg := NewExchangeAggregate(ExchangeAggregateDeps{
		Base:          BaseDeps{DB: f.db, Log: log, Runner: runner},
		Exchanges:     repos.NewExchangeRepo(f.db, log),
		Notifications: repos.NewNotificationRepo(f.db, log),
		Messages:      stubMessages{},
	})

	_, err := agg.Reject(context.Background(), domainagg.ExchangeTransitionInput{ActorID: f.beto.ID, ExchangeID: e.ID})
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("want internal got=%v", err)
	}
	if runner.Bodies() != 1 || runner.Rollbacks() != 1 {
		t.Fatalf("bodies=%d rollbacks=%d", runner.Bodies(), runner.Rollbacks())
	}
	var stored types.Exchange
	if err := f.db.Where("id = ?", e.ID).Take(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != exchange.StatusPending {
		t.Fatalf("status after rollback: want=pending got=%s", stored.Status)
	}
	if got := f.notificationsFor(t, f.ana.ID); len(got) != 0 {
		t.Fatalf("proposer notifications after rollback: want=0 got=%d", len(got))
	}
}

func TestUploadReceiptReportsReplacedRef(t *testing.T) {
	f := newExchangeFixture(t)
	e := f.propose(t)

	first, err := f.upload(exchange.RoleOffered, f.ana.ID, e.ID)
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if first.ReplacedRef != "" {
		t.Fatalf("first upload replaced=%q", first.ReplacedRef)
	}

	second, err := f.agg.UploadReceipt(context.Background(), domainagg.UploadReceiptInput{
		ActorID:    f.ana.ID,
		ExchangeID: e.ID,
		Role:       exchange.RoleOffered,
		ReceiptRef: "receipts/" + e.ID.String() + "/offered/again.png",
	})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.ReplacedRef != first.Exchange.ReceiptOffered {
		t.Fatalf("replaced: want=%q got=%q", first.Exchange.ReceiptOffered, second.ReplacedRef)
	}
	if second.Exchange.ReceiptOffered != "receipts/"+e.ID.String()+"/offered/again.png" {
		t.Fatalf("receipt_offered: got=%q", second.Exchange.ReceiptOffered)
	}
}
