package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	exchangerepo "github.com/yungbote/truequecito-backend/internal/data/repos/exchange"
	notificationrepo "github.com/yungbote/truequecito-backend/internal/data/repos/notification"
	domainagg "github.com/yungbote/truequecito-backend/internal/domain/aggregates"
	"github.com/yungbote/truequecito-backend/internal/domain/exchange"
	"github.com/yungbote/truequecito-backend/internal/domain/notification"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
)

const exchangeTable = "exchange"

type ExchangeAggregateDeps struct {
	Base          BaseDeps
	Exchanges     exchangerepo.ExchangeRepo
	Notifications notificationrepo.NotificationRepo
	Messages      notification.MessageCatalog
}

type exchangeAggregate struct {
	deps ExchangeAggregateDeps
}

var _ domainagg.ExchangeAggregate = (*exchangeAggregate)(nil)

func NewExchangeAggregate(deps ExchangeAggregateDeps) domainagg.ExchangeAggregate {
	deps.Base = deps.Base.withDefaults()
	return &exchangeAggregate{deps: deps}
}

func (a *exchangeAggregate) Contract() domainagg.Contract {
	return domainagg.ExchangeAggregateContract
}

func (a *exchangeAggregate) Propose(ctx context.Context, in domainagg.ProposeExchangeInput) (domainagg.ExchangeWriteResult, error) {
	const op = "Exchange.Propose"
	out := domainagg.ExchangeWriteResult{}
	if err := a.ready(); err != nil {
		return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		switch {
		case in.ActorID == uuid.Nil:
			return UnauthorizedError("missing actor")
		case in.CounterpartyID == uuid.Nil:
			return ValidationError("userRequested is required")
		case in.ProductOffered == uuid.Nil || in.ProductRequested == uuid.Nil:
			return ValidationError("productOffered and productRequested are required")
		case in.ActorID == in.CounterpartyID:
			return ValidationError("cannot propose an exchange to yourself")
		case in.ProductOffered == in.ProductRequested:
			return ValidationError("offered and requested products must differ")
		}

		at := a.at(in.ProposedAt)
		rows, err := a.deps.Exchanges.Create(dbc, []*exchange.Exchange{{
			ID:               uuid.New(),
			UniqueCode:       exchange.NewUniqueCode(),
			ProductOffered:   in.ProductOffered,
			ProductRequested: in.ProductRequested,
			UserOffered:      in.ActorID,
			UserRequested:    in.CounterpartyID,
			Status:           exchange.StatusPending,
			CreatedAt:        at,
			UpdatedAt:        at,
		}})
		if err != nil {
			return err
		}
		created := rows[0]

		n, err := a.notify(dbc, created, notification.KindProposalReceived, at, created.UserRequested)
		if err != nil {
			return err
		}
		out.Exchange = created
		out.Notifications = n
		return nil
	})
	if err != nil {
		return domainagg.ExchangeWriteResult{}, err
	}
	return out, nil
}

func (a *exchangeAggregate) Accept(ctx context.Context, in domainagg.ExchangeTransitionInput) (domainagg.ExchangeWriteResult, error) {
	in.Target = exchange.StatusAccepted
	return a.transition(ctx, "Exchange.Accept", in, requireCounterparty)
}

// requireCounterparty keeps the proposer from accepting their own offer.
func requireCounterparty(e *exchange.Exchange, actor uuid.UUID) error {
	if e.UserRequested != actor {
		return UnauthorizedError("only the requested participant can accept the exchange")
	}
	return nil
}

func (a *exchangeAggregate) Reject(ctx context.Context, in domainagg.ExchangeTransitionInput) (domainagg.ExchangeWriteResult, error) {
	in.Target = exchange.StatusRejected
	return a.transition(ctx, "Exchange.Reject", in)
}

func (a *exchangeAggregate) UpdateStatus(ctx context.Context, in domainagg.ExchangeTransitionInput) (domainagg.ExchangeWriteResult, error) {
	return a.transition(ctx, "Exchange.UpdateStatus", in)
}

// transition runs a status change for any participant; extra checks run
// against the locked row before the status is inspected.
func (a *exchangeAggregate) transition(ctx context.Context, op string, in domainagg.ExchangeTransitionInput, checks ...func(*exchange.Exchange, uuid.UUID) error) (domainagg.ExchangeWriteResult, error) {
	out := domainagg.ExchangeWriteResult{}
	if err := a.ready(); err != nil {
		return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if in.ExchangeID == uuid.Nil {
			return ValidationError("exchangeId is required")
		}
		if _, err := exchange.ParseStatus(string(in.Target)); err != nil {
			return ValidationError(err.Error())
		}
		current, err := a.lockParticipant(dbc, in.ExchangeID, in.ActorID)
		if err != nil {
			return err
		}
		for _, check := range checks {
			if err := check(current, in.ActorID); err != nil {
				return err
			}
		}
		if current.Status == in.Target {
			return ConflictError(fmt.Sprintf("exchange is already %s", in.Target))
		}
		if !in.Target.CanTransitionFrom(current.Status) {
			return ConflictError(fmt.Sprintf("cannot move exchange from %s to %s", current.Status, in.Target))
		}

		at := a.at(in.OccurredAt)
		if in.Target == exchange.StatusCompleted {
			ok, err := a.deps.Exchanges.CompleteWhenReceiptsPresent(dbc, current.ID, at)
			if err != nil {
				return err
			}
			if !ok {
				return InvariantError("exchange can only be completed once both receipts are uploaded")
			}
		} else {
			if err := a.deps.Base.Guard.Advance(dbc, exchangeTable, current.ID, in.Target.Predecessors(),
				map[string]any{"status": string(in.Target), "updated_at": at}); err != nil {
				return err
			}
		}

		updated, err := a.deps.Exchanges.GetByID(dbc, current.ID)
		if err != nil {
			return err
		}
		n, err := a.notify(dbc, updated, notification.KindStatusChanged, at, updated.UserOffered, updated.UserRequested)
		if err != nil {
			return err
		}
		out.Exchange = updated
		out.Notifications = n
		return nil
	})
	if err != nil {
		return domainagg.ExchangeWriteResult{}, err
	}
	return out, nil
}

func (a *exchangeAggregate) UploadReceipt(ctx context.Context, in domainagg.UploadReceiptInput) (domainagg.UploadReceiptResult, error) {
	const op = "Exchange.UploadReceipt"
	out := domainagg.UploadReceiptResult{}
	if err := a.ready(); err != nil {
		return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if in.ExchangeID == uuid.Nil {
			return ValidationError("exchangeId is required")
		}
		role, err := exchange.ParseRole(string(in.Role))
		if err != nil {
			return ValidationError(err.Error())
		}
		ref := strings.TrimSpace(in.ReceiptRef)
		if ref == "" {
			return ValidationError("receipt is required")
		}
		current, err := a.lockParticipant(dbc, in.ExchangeID, in.ActorID)
		if err != nil {
			return err
		}
		if current.UserFor(role) != in.ActorID {
			return UnauthorizedError(fmt.Sprintf("only the %s participant can upload that receipt", role))
		}
		if err := RequireStatusIn(current.Status, exchange.ActiveStatuses,
			fmt.Sprintf("receipts cannot be uploaded to a %s exchange", current.Status)); err != nil {
			return err
		}

		at := a.at(in.UploadedAt)
		if err := a.deps.Base.Guard.Advance(dbc, exchangeTable, current.ID, exchange.ActiveStatuses,
			receiptSlotUpdates(role, ref, in.Address, in.Phone, in.ActorID, at)); err != nil {
			return err
		}

		completed, err := a.deps.Exchanges.CompleteWhenReceiptsPresent(dbc, current.ID, at)
		if err != nil {
			return err
		}
		updated, err := a.deps.Exchanges.GetByID(dbc, current.ID)
		if err != nil {
			return err
		}
		out.Exchange = updated
		out.Completed = completed
		if prev := current.ReceiptFor(role); prev != ref {
			out.ReplacedRef = prev
		}
		if completed {
			return nil
		}
		n, err := a.notify(dbc, updated, notification.KindReceiptUploaded, at, updated.UserFor(role.Other()))
		if err != nil {
			return err
		}
		out.Notifications = n
		return nil
	})
	if err != nil {
		return domainagg.UploadReceiptResult{}, err
	}
	return out, nil
}

func receiptSlotUpdates(role exchange.Role, ref, address, phone string, actor uuid.UUID, at time.Time) map[string]any {
	suffix := "offered"
	if role == exchange.RoleRequested {
		suffix = "requested"
	}
	return map[string]any{
		"receipt_" + suffix: ref,
		"address_" + suffix: strings.TrimSpace(address),
		"phone_" + suffix:   strings.TrimSpace(phone),
		// The first uploader sticks even if the other side races us.
		"first_receipt_uploaded_by": gorm.Expr("COALESCE(first_receipt_uploaded_by, ?)", actor),
		"updated_at":                at,
	}
}

// lockParticipant loads the row FOR UPDATE and checks actor takes part in it.
func (a *exchangeAggregate) lockParticipant(dbc dbctx.Context, id, actor uuid.UUID) (*exchange.Exchange, error) {
	if actor == uuid.Nil {
		return nil, UnauthorizedError("missing actor")
	}
	row, err := a.deps.Exchanges.LockByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if !row.IsParticipant(actor) {
		return nil, UnauthorizedError("only exchange participants can change it")
	}
	return row, nil
}

func (a *exchangeAggregate) notify(dbc dbctx.Context, e *exchange.Exchange, kind notification.Kind, at time.Time, recipients ...uuid.UUID) (int, error) {
	msg, err := a.deps.Messages.Render(kind, map[string]string{
		"status":     string(e.Status),
		"uniqueCode": e.UniqueCode,
	})
	if err != nil {
		return 0, fmt.Errorf("render %s notification: %w", kind, err)
	}
	exchangeID := e.ID
	rows := make([]*notification.Notification, 0, len(recipients))
	for _, userID := range recipients {
		rows = append(rows, &notification.Notification{
			ID:         uuid.New(),
			UserID:     userID,
			ExchangeID: &exchangeID,
			Kind:       kind,
			Message:    msg,
			CreatedAt:  at,
		})
	}
	if _, err := a.deps.Notifications.Create(dbc, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (a *exchangeAggregate) at(t time.Time) time.Time {
	if t.IsZero() {
		return a.deps.Base.Now()
	}
	return t.UTC()
}

func (a *exchangeAggregate) ready() error {
	switch {
	case a == nil:
		return fmt.Errorf("exchange aggregate is nil")
	case a.deps.Exchanges == nil:
		return fmt.Errorf("exchange repo is required")
	case a.deps.Notifications == nil:
		return fmt.Errorf("notification repo is required")
	case a.deps.Messages == nil:
		return fmt.Errorf("message catalog is required")
	}
	return nil
}
